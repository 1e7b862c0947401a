package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/df07/go-ward-shading/pkg/renderer"
	"github.com/df07/go-ward-shading/web/server"
)

func main() {
	// Parse command line flags
	port := flag.Int("port", 8080, "Port to serve on")
	check := flag.Bool("check", true, "Render every preset once before serving")
	checkSize := flag.Int("check-size", 16, "Image size of the startup render check")
	flag.Parse()

	webServer := server.NewServer(*port)
	log.Printf("Ward Material Preview Server")

	if *check {
		warnings, err := webServer.CheckPresets(*checkSize, nil)
		if err != nil {
			log.Printf("Preset check failed: %v", err)
			os.Exit(1)
		}
		for _, name := range renderer.PresetNames() {
			if n := warnings[name]; n > 0 {
				log.Printf("Preset %s renders with %d warnings", name, n)
			}
		}
	}

	log.Printf("Materials: %s", strings.Join(renderer.PresetNames(), ", "))
	log.Printf("Try http://localhost:%d/api/preview?material=brushed&ss=4", *port)

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
