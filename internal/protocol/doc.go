// Package protocol parses and dispatches the compact binary control
// protocol spoken by the companion app.
//
// Every message is one opcode byte followed by a fixed-arity payload
// (variable only for reconfiguration). A message whose payload does not
// match the opcode's declared arity is rejected with a text error reply and
// leaves all device state untouched.
//
// Reconfiguration is accepted only on sessions opened in hotspot context.
// That is a trust boundary, not transport security: payloads are
// unauthenticated by design, and the check only scopes who can rewrite
// credentials to clients that joined the setup hotspot.
package protocol
