// Command kvs reads and writes a kvs store directly, or serves it over TCP.
//
//	kvs set KEY VALUE
//	kvs get KEY
//	kvs rm KEY
//	kvs serve --port 9999
package main

import (
	"os"

	"github.com/0xRadioAc7iv/go-kvs/internal/log"
)

func main() {
	err := newRootCmd().Execute()
	log.Sync()

	if err != nil {
		os.Exit(1)
	}
}
