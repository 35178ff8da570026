// Package packet implements the native TIO packet: a packed 4-byte header, a
// payload of up to MaxPayloadSize bytes, and a routing trailer of up to
// MaxRoutingSize single-byte hops used for source routing through relays.
//
// The trailer is a stack. Senders push hops in reverse traversal order and
// every relay pops one hop to learn where to forward the packet next, without
// touching the payload.
package packet
