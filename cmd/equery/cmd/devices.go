package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/msto63/englishquery/internal/speech"
	"github.com/msto63/englishquery/internal/speech/audio"
)

var selectDevice int

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List microphones",
	Long: `Lists audio input devices with the index used by the listener.
With --select the index is stored in the listener settings file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		devices, err := audio.ListInputDevices()
		if err != nil {
			printError("failed to list input devices", err)
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No input devices found")
		}
		for _, d := range devices {
			marker := " "
			if d.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %2d  %-40s %d ch  %.0f Hz\n", marker, d.Index, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
		}

		if !cmd.Flags().Changed("select") {
			return nil
		}
		if selectDevice < 0 || selectDevice >= len(devices) {
			return fmt.Errorf("device index %d out of range", selectDevice)
		}
		if err := selectInputDevice(appConfig.Listener.SettingsFile, selectDevice); err != nil {
			printError("failed to store device selection", err)
			return err
		}
		fmt.Printf("Using device %d for voice input\n", selectDevice)
		return nil
	},
}

func init() {
	devicesCmd.Flags().IntVar(&selectDevice, "select", 0, "store this device index in the listener settings")
	rootCmd.AddCommand(devicesCmd)
}

// selectInputDevice stores index in the settings file. An unreadable file
// is left alone so the other values are not replaced by defaults.
func selectInputDevice(path string, index int) error {
	settings, err := speech.LoadSettings(path)
	if err != nil {
		return err
	}
	settings.DeviceIndex = index
	return speech.SaveSettings(path, settings)
}
