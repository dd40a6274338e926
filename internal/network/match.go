package network

import (
	"net"
	"strings"
)

// Match pairs a metadata interface with the host link carrying its MAC.
type Match struct {
	ID   string
	MAC  string
	Link string
}

// MatchNames finds the host link of every canonical interface record in
// raw by hardware address. Records without a host link are left out.
func MatchNames(raw map[string]any, links []Link) []Match {
	idx := ByMAC(links)
	items, _ := raw["interfaces"].([]any)

	var out []Match
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := rec["id"].(string)
		s, _ := rec["mac"].(string)
		mac, err := net.ParseMAC(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		if l, ok := idx[strings.ToLower(mac.String())]; ok {
			out = append(out, Match{ID: id, MAC: mac.String(), Link: l.Name})
		}
	}
	return out
}

// HintNames sets the name hint of every interface record that has none
// to the name of its host link. It returns the number of hints set.
func HintNames(raw map[string]any, links []Link) int {
	byID := make(map[string]string)
	for _, m := range MatchNames(raw, links) {
		byID[m.ID] = m.Link
	}

	n := 0
	items, _ := raw["interfaces"].([]any)
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if hint, _ := rec["name"].(string); hint != "" {
			continue
		}
		id, _ := rec["id"].(string)
		if name, ok := byID[id]; ok {
			rec["name"] = name
			n++
		}
	}
	return n
}
