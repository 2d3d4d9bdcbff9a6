/* octreed - inbound edit-packet processor and reliability tracker for an
 * octree-based spatial server.
 *
 * Copyright (C) 2024 The octreed Authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/octree-io/octreed/core"
	"github.com/octree-io/octreed/directory"
	"github.com/octree-io/octreed/ingest"
	"github.com/octree-io/octreed/nack"
	"github.com/octree-io/octreed/reliability"
	"github.com/octree-io/octreed/wire"
)

// Version of octreed.
var Version string

// BuildTime contains the timestamp of when this version of octreed was built.
var BuildTime string

// stubHeaderCodec is a minimal single-byte header: the first byte of every
// packet is its PacketType. The real header format is owned by the octree
// implementation this daemon is linked against; this stands in so the
// daemon is runnable on its own.
type stubHeaderCodec struct{}

func (stubHeaderCodec) NumBytesForHeader([]byte) int { return 1 }
func (stubHeaderCodec) PacketTypeFor(data []byte) wire.PacketType {
	if len(data) == 0 {
		return 0
	}
	return wire.PacketType(data[0])
}
func (stubHeaderCodec) PopulateHeader(buf []byte, t wire.PacketType) int {
	buf[0] = byte(t)
	return 1
}

// stubOctree accepts every edit packet type and discards the record bytes,
// consuming the whole remaining buffer in one call. The real octree is an
// external collaborator out of scope for this repository; this keeps the
// daemon runnable without one linked in.
type stubOctree struct{}

func (stubOctree) HandlesEditPacketType(wire.PacketType) bool { return true }
func (stubOctree) LockForWrite()                              {}
func (stubOctree) Unlock()                                    {}
func (stubOctree) ProcessEditPacketData(_ wire.PacketType, _ []byte, _, max int) int {
	return max
}

func main() {
	core.Version = Version
	core.BuildTime = BuildTime
	core.StartTimestamp = time.Now()

	var shouldPrintVersion bool
	flag.BoolVar(&shouldPrintVersion, "version", false, "Print version and exit")
	flag.BoolVar(&shouldPrintVersion, "V", false, "Print version and exit (short)")
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to octreed.toml")
	flag.StringVar(&configFile, "c", "", "Path to octreed.toml (short)")
	flag.Parse()

	if shouldPrintVersion {
		fmt.Println("octreed: inbound edit-packet processor and reliability tracker")
		fmt.Println("Version " + core.Version + " (Built " + core.BuildTime + ")")
		return
	}

	core.LoadConfig(configFile)
	core.InitializeLogger(core.GetConfigStringDefault("core.log_file", ""))
	core.LogInfo("Main", "Starting octreed")

	mtu := core.GetConfigIntDefault("core.mtu", core.MaxPacketSize)
	udpAddr := core.GetConfigStringDefault("directory.udp_listen", ":7272")
	wsAddr := core.GetConfigStringDefault("directory.ws_listen", "")
	livenessTimeout := core.GetConfigDurationDefault("directory.liveness_timeout", 30*time.Second)
	nackInterval := core.GetConfigDurationDefault("nack.interval", reliability.NackInterval)

	headerCodec := stubHeaderCodec{}
	octree := stubOctree{}

	table := directory.NewTable(livenessTimeout)
	nodeDirectory := directory.NewDirectory(table)

	queue := ingest.NewQueue()
	registry := reliability.NewSenderRegistry()

	emitter, err := nack.NewEmitter(headerCodec, wire.PacketType(9), mtu)
	if err != nil {
		core.LogFatal("Main", "unable to construct NACK emitter: ", err)
	}
	defer emitter.Close()

	processor := ingest.NewProcessor(queue, registry, emitter, octree, nodeDirectory, headerCodec, nackInterval)

	ctx, cancel := context.WithCancel(context.Background())

	udpListener := directory.NewUDPListener(udpAddr, table, queue, mtu)
	go func() {
		if err := udpListener.Run(ctx); err != nil && ctx.Err() == nil {
			core.LogError("Main", "UDP listener exited: ", err)
		}
	}()
	core.LogInfo("Main", "Listening for edit packets on ", udpAddr)

	var httpServer *http.Server
	if wsAddr != "" {
		wsServer := directory.NewWebSocketServer(table, queue, mtu)
		mux := http.NewServeMux()
		mux.Handle("/edit", wsServer)
		httpServer = &http.Server{Addr: wsAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				core.LogError("Main", "WebSocket server exited: ", err)
			}
		}()
		core.LogInfo("Main", "Listening for WebSocket edit packets on ", wsAddr)
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for !core.ShouldQuit {
			processor.Process()
		}
	}()

	sigChannel := make(chan os.Signal, 1)
	signal.Notify(sigChannel, os.Interrupt)
	receivedSig := <-sigChannel
	core.LogInfo("Main", "Received signal ", receivedSig.String(), " - exiting")
	core.ShouldQuit = true

	cancel()
	if httpServer != nil {
		_ = httpServer.Close()
	}
	<-workerDone

	core.LogInfo("Main", "sent=", emitter.Sent(), " failed=", emitter.Failed(),
		" totalPackets=", registry.TotalPackets(), " totalElements=", registry.TotalElements())
}
