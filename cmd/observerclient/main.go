package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"terrainstream/internal/network"
)

func main() {
	server := flag.String("server", "127.0.0.1:19000", "terrain server UDP address")
	name := flag.String("name", "observerclient", "observer name reported to the server")
	fromFlag := flag.String("from", "0,0", "start world position as x,y")
	toFlag := flag.String("to", "1000,0", "end world position as x,y")
	steps := flag.Int("steps", 20, "number of positions to report along the walk")
	interval := flag.Duration("interval", 250*time.Millisecond, "delay between position reports")
	flag.Parse()

	if *steps < 1 {
		*steps = 1
	}

	from, err := parseVec(*fromFlag)
	if err != nil {
		log.Fatalf("--from: %v", err)
	}
	to, err := parseVec(*toFlag)
	if err != nil {
		log.Fatalf("--to: %v", err)
	}

	client, err := network.Dial(*server, 0)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.Send(network.MessageObserverHello, network.ObserverHello{Name: *name, X: from.X(), Y: from.Y()}); err != nil {
		log.Fatalf("send hello: %v", err)
	}
	var welcome network.Welcome
	if err := client.Expect(network.MessageWelcome, &welcome, 3*time.Second); err != nil {
		log.Fatalf("handshake: %v", err)
	}
	fmt.Printf("Joined %s as %s (chunk size %d)\n", welcome.ServerID, welcome.SessionID, welcome.ChunkSize)

	for i := 0; i <= *steps; i++ {
		t := float64(i) / float64(*steps)
		pos := from.Add(to.Sub(from).Mul(t))
		update := network.ObserverUpdate{SessionID: welcome.SessionID, X: pos.X(), Y: pos.Y()}
		if err := client.Send(network.MessageObserverUpdate, update); err != nil {
			log.Fatalf("send update: %v", err)
		}

		var visible network.VisibleChunks
		if err := client.Expect(network.MessageVisibleChunks, &visible, *interval+time.Second); err != nil {
			log.Printf("step %d: %v", i, err)
			continue
		}
		printSummary(i, pos, visible)
		time.Sleep(*interval)
	}

	if err := client.Send(network.MessageObserverBye, network.ObserverBye{SessionID: welcome.SessionID}); err != nil {
		log.Printf("send bye: %v", err)
	}
}

func printSummary(step int, pos mgl64.Vec2, msg network.VisibleChunks) {
	meshed := 0
	perLOD := make(map[int]int)
	for _, chunk := range msg.Chunks {
		if chunk.LOD >= 0 {
			meshed++
			perLOD[chunk.LOD]++
		}
	}
	fmt.Printf(" %3d: at (%.1f,%.1f) seq %d visible %d meshed %d known %d pending %d lod %v\n",
		step, pos.X(), pos.Y(), msg.Seq, len(msg.Chunks), meshed, msg.Known, msg.Pending, perLOD)
}

func parseVec(value string) (mgl64.Vec2, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return mgl64.Vec2{}, fmt.Errorf("%q is not an x,y pair", value)
	}
	var out mgl64.Vec2
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return mgl64.Vec2{}, fmt.Errorf("parse %q: %w", part, err)
		}
		out[i] = v
	}
	return out, nil
}
