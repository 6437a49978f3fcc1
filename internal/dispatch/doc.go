// Package dispatch maps decoded bulb requests onto RF transmitter codes.
//
// Only two methods are actuated:
//
//	set_power "on"  -> 'a'
//	set_power "off" -> 'b'
//	toggle          -> 'c', 'd', 'c', ... (alternating, starting with 'c')
//
// Every other method (set_ct_abx, set_bright, set_rgb, ...) is acknowledged
// by the gateway but has no transmitter command and dispatches to
// Unrecognized.
package dispatch
