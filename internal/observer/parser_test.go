package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineTCPSyn(t *testing.T) {
	line := "1738000000.123456 aa:bb:cc:dd:ee:01 > aa:bb:cc:dd:ee:02, ethertype IPv4 (0x0800), length 94: 10.0.0.1.54321 > 10.0.0.2.80: Flags [S], seq 0, win 64240, length 40"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, "h1", ev.Device)
	assert.Equal(t, "veth0", ev.Iface)
	assert.Equal(t, TCP, ev.Protocol)
	assert.Equal(t, "syn", ev.Subtag)
	assert.Equal(t, "10.0.0.1", ev.Src)
	assert.Equal(t, "54321", ev.SrcPort)
	assert.Equal(t, "10.0.0.2", ev.Dst)
	assert.Equal(t, "80", ev.DstPort)
	assert.Equal(t, 40, ev.Length)
}

func TestParseLineTCPSynAck(t *testing.T) {
	line := "1738000000.123999 aa:bb:cc:dd:ee:02 > aa:bb:cc:dd:ee:01, ethertype IPv4 (0x0800), length 54: 10.0.0.2.80 > 10.0.0.1.54321: Flags [S.], seq 0, ack 1, length 0"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, "syn_ack", ev.Subtag)
}

func TestParseLineICMPEchoRequest(t *testing.T) {
	line := "1738000000.200000 aa:bb:cc:dd:ee:01 > aa:bb:cc:dd:ee:02, ethertype IPv4 (0x0800), length 98: 10.0.0.1 > 10.0.0.2: ICMP echo request, id 1, seq 1, length 64"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, ICMP, ev.Protocol)
	assert.Equal(t, "echo_request", ev.Subtag)
	assert.Equal(t, "10.0.0.1", ev.Src)
	assert.Equal(t, "10.0.0.2", ev.Dst)
}

func TestParseLineICMPTimeExceeded(t *testing.T) {
	line := "1738000000.200001 aa:bb:cc:dd:ee:fe > aa:bb:cc:dd:ee:01, ethertype IPv4 (0x0800), length 70: 10.0.0.254 > 10.0.0.1: ICMP time exceeded in-transit, length 36"
	ev, ok := parseLine("r1", "veth1", line)
	require.True(t, ok)
	assert.Equal(t, "time_exceeded", ev.Subtag)
}

func TestParseLineUDPDNSQuery(t *testing.T) {
	line := "1738000000.300000 aa:bb:cc:dd:ee:05 > aa:bb:cc:dd:ee:02, ethertype IPv4 (0x0800), length 66: 10.0.0.5.51000 > 10.0.0.2.53: UDP, length 32"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, UDP, ev.Protocol)
	assert.Equal(t, "dns_query", ev.Subtag)
	assert.Equal(t, "51000", ev.SrcPort)
	assert.Equal(t, "53", ev.DstPort)
}

func TestParseLineUDPDNSResponse(t *testing.T) {
	line := "1738000000.300500 aa:bb:cc:dd:ee:02 > aa:bb:cc:dd:ee:05, ethertype IPv4 (0x0800), length 98: 10.0.0.2.53 > 10.0.0.5.51000: UDP, length 64"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, "dns_response", ev.Subtag)
}

func TestParseLineUDPOrdinaryHasNoSubtag(t *testing.T) {
	line := "1738000000.300600 aa:bb:cc:dd:ee:05 > aa:bb:cc:dd:ee:02, ethertype IPv4 (0x0800), length 98: 10.0.0.5.51000 > 10.0.0.2.5353: UDP, length 64"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, UDP, ev.Protocol)
	assert.Empty(t, ev.Subtag)
}

func TestParseLineARPRequest(t *testing.T) {
	line := "1738000000.000001 aa:bb:cc:dd:ee:01 > ff:ff:ff:ff:ff:ff, ethertype ARP (0x0806), length 42: Request who-has 10.0.0.2 tell 10.0.0.1, length 28"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, ARP, ev.Protocol)
	assert.Equal(t, "arp_request", ev.Subtag)
	assert.Equal(t, "10.0.0.1", ev.Src)
	assert.Equal(t, "10.0.0.2", ev.Dst)
	assert.Equal(t, 28, ev.Length)
}

func TestParseLineARPReply(t *testing.T) {
	line := "1738000000.000002 aa:bb:cc:dd:ee:02 > aa:bb:cc:dd:ee:01, ethertype ARP (0x0806), length 42: Reply 10.0.0.2 is-at aa:bb:cc:dd:ee:02, length 28"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, "arp_reply", ev.Subtag)
	assert.Equal(t, "10.0.0.2", ev.Src)
}

func TestParseLineIgnoresBanner(t *testing.T) {
	_, ok := parseLine("h1", "veth0", "tcpdump: verbose output suppressed, use -v for full protocol decode")
	assert.False(t, ok)
}

func TestParseLineIgnoresBlank(t *testing.T) {
	_, ok := parseLine("h1", "veth0", "")
	assert.False(t, ok)
}

func TestParseLineMissingLengthDefaultsZero(t *testing.T) {
	line := "1738000000.000003 aa:bb:cc:dd:ee:01 > aa:bb:cc:dd:ee:02, ethertype IPv6 (0x86dd), length 60: fe80::1.1234 > ff02::1.5353: UDP, no-length-field-here"
	ev, ok := parseLine("h1", "veth0", line)
	require.True(t, ok)
	assert.Equal(t, UDP, ev.Protocol)
	assert.Equal(t, 0, ev.Length)
}
