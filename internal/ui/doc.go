// Package ui provides terminal output components for the yeebridge CLI.
//
// The components follow a "run once and exit" pattern: commands such as
// probe, send and discover render a Header describing what they are about to
// do, then a Result box or a Table with the outcome. Nothing here is
// interactive.
//
// # Components
//
//   - Header: command banner with title, command line and ordered parameters
//   - Result: success, failure or warning box with details and troubleshooting
//   - Table: aligned columns for listings such as discovered bulbs
//
// Example:
//
//	fmt.Println(ui.NewHeader("Probe", "yeebridge probe 10.0.0.5 toggle",
//	    ui.Detail{Key: "Bulb", Value: "10.0.0.5:55443"}))
//
//	fmt.Println(ui.NewSuccessResult("Acknowledged",
//	    ui.Detail{Key: "Reply", Value: `{"id": 1, "result": ["ok"]}`}))
//
// # Logging Integration
//
// zap logging stays silent unless YEEBRIDGE_LOG_LEVEL or --log-level is set,
// so this curated output is displayed cleanly.
package ui
