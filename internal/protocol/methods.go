package protocol

// Methods defined by the Yeelight inter-operation document. Only
// set_power and toggle are actuated by the gateway; the rest are accepted
// and acknowledged so clients behave as if talking to a real bulb.
const (
	MethodGetProp    = "get_prop"
	MethodSetCtAbx   = "set_ct_abx"
	MethodSetRGB     = "set_rgb"
	MethodSetHSV     = "set_hsv"
	MethodSetBright  = "set_bright"
	MethodSetPower   = "set_power"
	MethodToggle     = "toggle"
	MethodSetDefault = "set_default"
	MethodStartCF    = "start_cf"
	MethodStopCF     = "stop_cf"
	MethodSetScene   = "set_scene"
	MethodCronAdd    = "cron_add"
	MethodCronGet    = "cron_get"
	MethodCronDel    = "cron_del"
	MethodSetAdjust  = "set_adjust"
	MethodSetMusic   = "set_music"
	MethodSetName    = "set_name"
)

// knownMethods is ordered as advertised in the discovery "support" field
var knownMethods = []string{
	MethodGetProp,
	MethodSetDefault,
	MethodSetPower,
	MethodToggle,
	MethodSetBright,
	MethodStartCF,
	MethodStopCF,
	MethodSetScene,
	MethodCronAdd,
	MethodCronGet,
	MethodCronDel,
	MethodSetCtAbx,
	MethodSetRGB,
	MethodSetHSV,
	MethodSetAdjust,
	MethodSetMusic,
	MethodSetName,
}

// KnownMethods returns the documented method names
func KnownMethods() []string {
	out := make([]string, len(knownMethods))
	copy(out, knownMethods)
	return out
}

// IsKnownMethod reports whether method is part of the bulb protocol
func IsKnownMethod(method string) bool {
	for _, m := range knownMethods {
		if m == method {
			return true
		}
	}
	return false
}
