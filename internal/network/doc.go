// Package network inspects the host the tool runs on: its links, their
// permanent hardware addresses, and its configured resolvers.
//
// Discovery only reads state. It is used to seed interface name hints from
// the running system and to show what a rendered configuration will bind to.
package network
