// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture extracts UDP datagrams from pcap and pcapng captures so
// recorded controller traffic can be decoded offline.
package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Datagram is one UDP payload found in a capture
type Datagram struct {
	Timestamp time.Time
	Src       string // host:port
	Dst       string // host:port
	SrcPort   uint16
	DstPort   uint16
	Payload   []byte
}

// Filter selects datagrams. Port matches source or destination; 0 matches any.
type Filter struct {
	Port uint16
}

func (f Filter) match(src, dst uint16) bool {
	return f.Port == 0 || src == f.Port || dst == f.Port
}

type packetSource interface {
	LinkType() layers.LinkType
	ReadPacketData() (data []byte, ci gopacket.CaptureInfo, err error)
}

const ngMagic = 0x0A0D0D0A

// openSource picks the pcapng or classic pcap reader from the magic number
func openSource(r io.Reader) (packetSource, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(4)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty capture")
		}
		return nil, fmt.Errorf("cannot read capture header: %w", err)
	}

	if binary.LittleEndian.Uint32(magic) == ngMagic {
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return nil, fmt.Errorf("invalid pcapng capture: %w", err)
		}
		return ng, nil
	}

	pr, err := pcapgo.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("invalid pcap capture: %w", err)
	}
	return pr, nil
}

// Read returns every UDP datagram in the capture that matches the filter,
// in capture order. Non-UDP packets are skipped.
func Read(r io.Reader, f Filter) ([]Datagram, error) {
	src, err := openSource(r)
	if err != nil {
		return nil, err
	}

	var out []Datagram
	for {
		data, ci, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("capture read after %d datagrams: %w", len(out), err)
		}

		packet := gopacket.NewPacket(data, src.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp := udpLayer.(*layers.UDP)
		srcPort, dstPort := uint16(udp.SrcPort), uint16(udp.DstPort)
		if !f.match(srcPort, dstPort) {
			continue
		}

		var srcIP, dstIP string
		switch nl := packet.NetworkLayer().(type) {
		case *layers.IPv4:
			srcIP, dstIP = nl.SrcIP.String(), nl.DstIP.String()
		case *layers.IPv6:
			srcIP, dstIP = nl.SrcIP.String(), nl.DstIP.String()
		default:
			if nl != nil {
				srcIP = nl.NetworkFlow().Src().String()
				dstIP = nl.NetworkFlow().Dst().String()
			}
		}

		out = append(out, Datagram{
			Timestamp: ci.Timestamp,
			Src:       net.JoinHostPort(srcIP, strconv.Itoa(int(srcPort))),
			Dst:       net.JoinHostPort(dstIP, strconv.Itoa(int(dstPort))),
			SrcPort:   srcPort,
			DstPort:   dstPort,
			Payload:   append([]byte(nil), udp.Payload...),
		})
	}

	return out, nil
}

// ReadFile reads a capture file
func ReadFile(path string, f Filter) ([]Datagram, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file, f)
}
