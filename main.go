package main

import "github.com/vibast-solutions/ms-go-storefront-payments/cmd"

func main() {
	cmd.Execute()
}
