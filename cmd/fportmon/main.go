package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"os"

	fx "github.com/robotalks/fport.go/pkg/framework"
	"github.com/robotalks/fport.go/pkg/monitor"
)

func init() {
	monitor.SetupFlags()
}

func main() {
	flag.Parse()

	conf := monitor.NewConfig()
	if flag.NArg() > 0 {
		conf.Serial.Port = flag.Arg(0)
	}
	m := conf.MustNew().WithPrinter(os.Stdout)
	if err := fx.NewRunner().HandleSignals().Go(m).Wait(); err != nil {
		log.Fatalln(err)
	}
}
