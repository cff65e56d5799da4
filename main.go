package main

import "review-scraper/cmd"

func main() {
	cmd.Execute()
}
