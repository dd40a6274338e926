// Package metadata turns raw provisioning documents into typed records.
//
// Two shapes are understood. The canonical shape has top-level
// interfaces, bonds, vlans, addresses and routes lists that reference each
// other by identifier; [Parse] checks it field by field and returns a
// [Document]. The legacy Packet shape (network.interfaces,
// network.bonding, network.addresses) is rewritten into the canonical one
// by [FromPacket].
//
// Nothing in this package resolves references between records. That is
// the topology builder's job.
package metadata
