package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/fedkit/tesserae/app"
	"github.com/fedkit/tesserae/util"
)

func main() {
	versionFlag := flag.Bool("v", false, "Print version information")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("tesserae v%s\n", util.GetVersion())
		os.Exit(0)
	}

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	util.SetupLogging(conf.Conf.WithJournald)

	log.Printf("tesserae v%s", util.GetVersion())
	log.Println("Configuration: ")
	log.Println(util.PrettyPrint(conf))

	if conf.Conf.WithPprof {
		go func() {
			log.Println("pprof server listening on localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	application, err := app.New(conf)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Initialize(); err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
