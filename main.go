package main

import "github.com/raphaelm22/media-downloader-bot/cmd"

func main() {
	cmd.Execute()
}
