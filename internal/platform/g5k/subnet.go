package g5k

import (
	"fmt"
	"net/netip"
)

// CoveringPrefix returns the smallest prefix containing every prefix given.
// OAR may report a reserved /22 as several smaller blocks.
func CoveringPrefix(prefixes []string) (netip.Prefix, error) {
	if len(prefixes) == 0 {
		return netip.Prefix{}, fmt.Errorf("no subnet prefixes")
	}

	parsed := make([]netip.Prefix, 0, len(prefixes))
	for _, s := range prefixes {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("invalid subnet %q: %w", s, err)
		}
		if !p.Addr().Is4() {
			return netip.Prefix{}, fmt.Errorf("subnet %q is not IPv4", s)
		}
		parsed = append(parsed, p.Masked())
	}

	cover := parsed[0]
	for _, p := range parsed[1:] {
		for !cover.Contains(p.Addr()) || cover.Bits() > p.Bits() {
			cover = netip.PrefixFrom(cover.Addr(), cover.Bits()-1).Masked()
		}
	}
	return cover, nil
}
