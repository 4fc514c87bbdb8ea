// Package bridge connects the daemon to MQTT.
//
// Outbound, it publishes retained state after every scheduler tick:
//
//	autobrightness/state/curve         {elevation,target,enabled,timestamp}
//	autobrightness/state/monitor/{id}  {id,label,backend,i2c_bus,brightness,timestamp}
//
// Inbound, it handles commands:
//
//	autobrightness/command/monitor/{id}  {"brightness":N} or {"vcp":"12","value":N}
//	autobrightness/command/auto          {"enabled":bool}
//
// Command failures are logged; nothing is acknowledged on the bus.
package bridge
