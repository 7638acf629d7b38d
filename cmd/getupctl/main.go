package main

import "github.com/SoarinFerret/GetUp/cmd/getupctl/arg"

func main() {
	arg.Execute()
}
