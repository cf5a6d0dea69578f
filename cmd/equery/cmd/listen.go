package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var listenDevice int

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Record one phrase and print the transcription",
	RunE: func(cmd *cobra.Command, _ []string) error {
		listener, err := buildListener(appConfig)
		if err != nil {
			printError("voice input unavailable", err)
			return err
		}
		if cmd.Flags().Changed("device") {
			listener.SetDeviceIndex(listenDevice)
		}

		done := make(chan struct{})
		listener.SetLogCallback(func(msg string) { fmt.Fprintln(os.Stderr, msg) })
		listener.SetTranscriptionCallback(func(text string) { fmt.Println(text) })
		listener.SetStopCallback(func() { close(done) })

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		if !listener.Start() {
			return fmt.Errorf("listener did not start")
		}
		select {
		case <-done:
		case <-sig:
			listener.Shutdown()
			<-done
		}
		return nil
	},
}

func init() {
	listenCmd.Flags().IntVar(&listenDevice, "device", 0, "microphone index (see 'equery devices')")
	rootCmd.AddCommand(listenCmd)
}
