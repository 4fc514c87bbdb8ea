package mqtt

import "strings"

// TopicPrefix is the root of every topic the daemon uses.
const TopicPrefix = "autobrightness"

// Topics builds the daemon's MQTT topics:
//
//	autobrightness/state/monitor/{id}    retained monitor state
//	autobrightness/state/curve           retained curve state
//	autobrightness/command/monitor/{id}  brightness or VCP commands
//	autobrightness/command/auto          auto-brightness toggle
//	autobrightness/system/status         online/offline (LWT)
type Topics struct{}

// MonitorState returns the retained state topic for a monitor.
func (Topics) MonitorState(id string) string {
	return TopicPrefix + "/state/monitor/" + id
}

// CurveState returns the retained state topic for the brightness curve.
func (Topics) CurveState() string {
	return TopicPrefix + "/state/curve"
}

// MonitorCommand returns the command topic for a monitor.
func (Topics) MonitorCommand(id string) string {
	return TopicPrefix + "/command/monitor/" + id
}

// AllMonitorCommands matches the command topic of every monitor.
func (Topics) AllMonitorCommands() string {
	return TopicPrefix + "/command/monitor/+"
}

// AutoCommand returns the auto-brightness toggle topic.
func (Topics) AutoCommand() string {
	return TopicPrefix + "/command/auto"
}

// SystemStatus returns the daemon's online status topic.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// MonitorIDFromCommand extracts the monitor id from a monitor command topic.
func (Topics) MonitorIDFromCommand(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, TopicPrefix+"/command/monitor/")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
