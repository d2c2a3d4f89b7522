package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/phil-mansfield/goib"
	"github.com/phil-mansfield/goib/io"
	"github.com/phil-mansfield/goib/stream"
)

type FileGroup struct {
	log, prof *os.File
}

func (fg *FileGroup) Close() {
	if fg.log != nil {
		err := fg.log.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	if fg.prof != nil {
		pprof.StopCPUProfile()
		err := fg.prof.Close()
		if err != nil {
			log.Fatal(err.Error())
		}
	}
}

func main() {
	var run, exampleConfig string
	vars := map[string]*string{
		"Run":           &run,
		"ExampleConfig": &exampleConfig,
	}

	flag.StringVar(&run, "Run", "", "Configuration file for [Run] mode.")
	flag.StringVar(
		&exampleConfig,
		"ExampleConfig", "", "Prints an example configuration file of the "+
			"specified type to stdout. The only accepted argument is 'Run'.",
	)

	flag.Parse()

	modeName, err := getModeName(vars)
	if err != nil {
		log.Fatal(err.Error())
	}

	switch modeName {
	case "Run":
		wrap, err := io.ReadRunConfig(run)
		if err != nil {
			log.Fatal(err.Error())
		}
		runMain(wrap)
	case "ExampleConfig":
		switch exampleConfig {
		case "Run":
			fmt.Println(io.ExampleRunFile)
		default:
			log.Fatal(
				"Unrecognized 'ExampleConfig' argument. The only recognized " +
					"argument is 'Run'.",
			)
		}
	default:
		panic("Impossible")
	}
}

func getModeName(vars map[string]*string) (string, error) {
	setNames := []string{}

	for name, varPtr := range vars {
		if *varPtr != "" {
			setNames = append(setNames, name)
		}
	}

	if len(setNames) == 0 {
		return "", fmt.Errorf("No flags have been set.")
	}

	if len(setNames) > 1 {
		return "", fmt.Errorf(
			"The following flags were set: %s, but goib only accepts one "+
				"flag at a time.",
			strings.Join(setNames, ", "),
		)
	}

	return setNames[0], nil
}

func runMain(wrap *io.RunWrapper) {
	con := &wrap.Run
	fg := runSetupIO(con)
	defer fg.Close()

	sim, err := goib.NewFromConfig(wrap)
	if err != nil {
		log.Fatal(err.Error())
	}

	if con.ValidStreamAddress() {
		srv := stream.NewServer()
		srv.Log = con.Log
		defer srv.Close()

		ln, err := net.Listen("tcp", con.StreamAddress)
		if err != nil {
			log.Fatal(err.Error())
		}
		mux := http.NewServeMux()
		mux.Handle("/ws", srv)
		go func() {
			if err := http.Serve(ln, mux); err != nil && con.Log {
				log.Println(err.Error())
			}
		}()
		if con.Log {
			log.Printf("Streaming snapshots on ws://%s/ws", ln.Addr())
		}

		sim.AddObserver(srv)
	}

	clk, err := sim.Solve()
	if err != nil {
		log.Fatal(err.Error())
	}
	if con.Log {
		log.Printf("Finished %d steps at t = %g.", clk.Step, clk.Time)
	}
}

func runSetupIO(con *io.RunConfig) *FileGroup {
	var err error
	fg := &FileGroup{}

	if con.ValidLogFile() {
		fg.log, err = os.Create(con.LogFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		log.SetOutput(fg.log)
	}

	if con.Log {
		log.Println("Running Run main.")
	}

	if con.ValidProfileFile() {
		fg.prof, err = os.Create(con.ProfileFile)
		if err != nil {
			log.Fatal(err.Error())
		}
		err = pprof.StartCPUProfile(fg.prof)
		if err != nil {
			log.Fatal(err.Error())
		}
	}

	return fg
}
