package yookassa

import (
	"net"
	"net/netip"
)

// TrustedNetworks адреса, с которых ЮKassa отправляет HTTP-уведомления.
var TrustedNetworks = []string{
	"185.71.76.0/27",
	"185.71.77.0/27",
	"77.75.153.0/25",
	"77.75.156.11/32",
	"77.75.156.35/32",
	"77.75.154.128/25",
	"2a02:5180::/32",
}

// IPFilter проверяет, что уведомление пришло из сети ЮKassa.
type IPFilter struct {
	prefixes      []netip.Prefix
	allowLoopback bool
}

// NewIPFilter создаёт фильтр по TrustedNetworks. allowLoopback дополнительно
// пропускает 127.0.0.0/8 и ::1, что нужно для локальной разработки.
func NewIPFilter(allowLoopback bool) *IPFilter {
	prefixes := make([]netip.Prefix, 0, len(TrustedNetworks))
	for _, cidr := range TrustedNetworks {
		prefixes = append(prefixes, netip.MustParsePrefix(cidr))
	}
	return &IPFilter{prefixes: prefixes, allowLoopback: allowLoopback}
}

// Allowed принимает адрес в виде "host:port" или "host".
func (f *IPFilter) Allowed(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap().WithZone("")

	if f.allowLoopback && addr.IsLoopback() {
		return true
	}
	for _, p := range f.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
