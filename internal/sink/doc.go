// Package sink defines where encoded frames go: debug text on a writer,
// loopback UDP or TCP replay, a remote UDP peer, or a pcap capture file.
//
// Every sink receives a frame through Accept and finishes it with EndFrame.
// A sink owns its socket, file and buffer and is not safe for concurrent use.
package sink
