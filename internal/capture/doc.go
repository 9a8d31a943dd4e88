// Package capture synthesizes libpcap files whose records carry each frame
// inside hand-built IPv4 and UDP headers, so packet analyzers can dissect
// plan output without a live network.
package capture
