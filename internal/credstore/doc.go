// Package credstore persists the single network-credential record the
// device needs to survive power cycles.
//
// The on-disk layout is protocol-locked: a 2-byte signature constant, a
// 33-byte NUL-terminated ssid, a 64-byte NUL-terminated password and a
// 2-byte CRC-16 over the two string fields. There is no version field; a
// format change requires a new signature constant. A record that fails
// either the signature or the CRC check is treated as absent, never
// partially trusted.
package credstore
