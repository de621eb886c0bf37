package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/stillness/internal/synth"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available synthesis voices",
	Args:  cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		for _, v := range synth.Voices() {
			if v == synth.DefaultVoice {
				fmt.Printf("%s %s\n", keyword(string(v)), subtle("(default)"))
				continue
			}
			fmt.Println(string(v))
		}
	},
}
