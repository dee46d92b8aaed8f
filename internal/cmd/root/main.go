package root

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"obdboard/internal/console"
	"obdboard/internal/displayer"
	"obdboard/internal/mqtt"
	"obdboard/internal/obd"
	"obdboard/internal/obd/mock"
	"obdboard/internal/obd/serial"
	"obdboard/internal/poller"
	"obdboard/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func Run(cmd *cobra.Command, args []string) {
	defer log.Sync()

	var connect obd.Connector
	if viper.GetBool("mock") {
		connect = mock.Connector()
	} else {
		connect = serial.Connector()
	}

	var sinks []poller.Sink
	if broker := viper.GetString("mqtt-broker"); broker != "" {
		client := mqtt.NewClient(mqtt.Config{
			Broker: broker,
			Topic:  viper.GetString("mqtt-topic"),
		})
		if err := client.Connect(); err != nil {
			log.Error("failed to connect to MQTT broker, publishing disabled", zap.Error(err))
		} else {
			defer client.Disconnect()
			sinks = append(sinks, client)
		}
	}

	if viper.GetBool("no-tui") {
		runHeadless(connect, sinks)
		return
	}

	d := displayer.New()
	p := poller.New(connect, d, poller.WithSinks(sinks...))
	d.Bind(p)

	err := d.Run()
	p.Close()
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// runHeadless polls right away and prints every tick until interrupted.
func runHeadless(connect obd.Connector, sinks []poller.Sink) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := console.New(os.Stdout)
	p := poller.New(connect, c, poller.WithSinks(append([]poller.Sink{c}, sinks...)...))
	p.Start()

	<-ctx.Done()
	p.Close()
}
