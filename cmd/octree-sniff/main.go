/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

// Command octree-sniff passively captures inbound edit-packet traffic on the
// wire and logs a line per datagram: source address, sequence number,
// timestamp, and packet type. It does not bind a socket or participate in
// the protocol - it is a read-only diagnostic tool for field debugging,
// grounded on the same pcap capture shape the forwarding daemon's BPF-based
// face implementation uses for its own passive listen mode.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/wire"
)

func openLive(device, bpfFilter string, snaplen int) (*pcap.Handle, error) {
	inactive, err := pcap.NewInactiveHandle(device)
	if err != nil {
		return nil, fmt.Errorf("creating pcap handle: %w", err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(snaplen); err != nil {
		return nil, fmt.Errorf("setting snap length: %w", err)
	}
	if err := inactive.SetImmediateMode(true); err != nil {
		return nil, fmt.Errorf("setting immediate mode: %w", err)
	}
	if err := inactive.SetTimeout(time.Second); err != nil {
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	handle, err := inactive.Activate()
	if err != nil {
		return nil, fmt.Errorf("activating pcap handle: %w", err)
	}

	if bpfFilter != "" {
		if err := handle.SetBPFFilter(bpfFilter); err != nil {
			handle.Close()
			return nil, fmt.Errorf("setting BPF filter: %w", err)
		}
	}

	return handle, nil
}

func main() {
	var device string
	flag.StringVar(&device, "i", "", "Interface to capture on")
	var udpPort int
	flag.IntVar(&udpPort, "port", 7272, "UDP port edit packets are sent on")
	var headerBytes int
	flag.IntVar(&headerBytes, "header-bytes", 1, "Number of edit-packet header bytes preceding the sequence/timestamp prefix")
	flag.Parse()

	if device == "" {
		fmt.Fprintln(os.Stderr, "octree-sniff: -i <interface> is required")
		os.Exit(2)
	}

	core.InitializeLogger("")

	bpfFilter := fmt.Sprintf("udp port %d", udpPort)
	handle, err := openLive(device, bpfFilter, 65535)
	if err != nil {
		core.LogFatal("Sniff", "unable to open capture device ", device, ": ", err)
	}
	defer handle.Close()

	core.LogInfo("Sniff", "capturing on ", device, " (", bpfFilter, ")")

	src := gopacket.NewPacketSource(handle, handle.LinkType())
	for packet := range src.Packets() {
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		payload := udpLayer.(*layers.UDP).Payload
		logPacket(packet, payload, headerBytes)
	}
}

func logPacket(packet gopacket.Packet, payload []byte, headerBytes int) {
	netLayer := packet.NetworkLayer()
	src := "?"
	if netLayer != nil {
		srcAddr, _ := netLayer.NetworkFlow().Endpoints()
		src = srcAddr.String()
	}

	if len(payload) < headerBytes {
		core.LogWarn("Sniff", "from ", src, ": payload shorter than header (", len(payload), " bytes)")
		return
	}

	packetType := wire.PacketType(0)
	if headerBytes > 0 {
		packetType = wire.PacketType(payload[0])
	}

	prefix, _, err := wire.ParseEditPrefix(payload[headerBytes:])
	if err != nil {
		core.LogWarn("Sniff", "from ", src, ": ", err)
		return
	}

	core.LogInfo("Sniff", "from ", src,
		" type=", packetType,
		" seq=", prefix.Sequence,
		" ts=", prefix.SendTimeStamp,
		" bytes=", len(payload))
}
