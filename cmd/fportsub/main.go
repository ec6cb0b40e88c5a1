package main

import (
	"flag"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/robotalks/fport.go/pkg/telemetry/mqtt"
	"github.com/robotalks/fport.go/pkg/telemetry/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/"
)

func init() {
	if val := os.Getenv("FPORT_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("fport/#", mqtt.Handler(func(topic string, payload []byte) {
		id, ok := mqtt.IDFromTopic(topic)
		if !ok {
			return
		}
		if strings.HasSuffix(topic, "/meta") {
			if len(payload) == 0 {
				log.Printf("%s: offline", id)
				return
			}
			log.Printf("%s: %s", id, string(payload))
			return
		}
		typed, err := msgs.DecodeTyped(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", id, err)
			return
		}
		msg, err := typed.Decode()
		if err != nil {
			log.Printf("%s: decode error: (type_id=%x) %v", id, typed.TypeId, err)
			return
		}
		if evt, ok := msg.(*msgs.ChannelsEvent); ok {
			log.Printf("%s: %s", id, evt.ChannelSet())
			return
		}
		log.Printf("%s: [%s] %s", id,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String())
	}))
	<-(chan struct{})(nil)
}
