// Command kvs-cli is an interactive client for a kvs server.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/0xRadioAc7iv/go-kvs/internal"
	"github.com/0xRadioAc7iv/go-kvs/internal/log"
	"github.com/0xRadioAc7iv/go-kvs/internal/protocol"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
	"github.com/0xRadioAc7iv/go-kvs/kvs"
)

const helpText = `Available Commands:

PING
  Check if the server is alive.

SET <key> <value>
  Store a value for the given key. Quote keys or values containing spaces.

GET <key>
  Retrieve the value associated with the key.

RM <key>
  Remove the key.

EXISTS <key>
  Check if a key exists.

COUNT
  Return the total number of keys stored.

KEYS
  List all stored keys.

COMPACT
  Rewrite the log keeping only live records.

HELP
  Show this help message.

EXIT
  Close the client connection.`

func main() {
	host := flag.String("host", internal.DEFAULT_HOST, "kvs server host")
	port := flag.Int("port", internal.DEFAULT_PORT, "kvs server port")
	flag.Parse()

	client, err := kvs.Connect(kvs.WithHost(*host), kvs.WithPort(*port))
	if err != nil {
		log.Fatal("%v", err)
	}
	defer client.Close()

	fmt.Printf("Connected to %v:%d\n", *host, *port)
	fmt.Println("Type commands. 'help' for information or 'exit' to quit.")

	if err := repl(client, os.Stdin, os.Stdout); err != nil {
		log.Error("%v", err)
	}
}

func repl(client *kvs.Client, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for {
		fmt.Fprint(out, "> ")

		line, err := reader.ReadString('\n')
		if err == io.EOF && line == "" {
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, key, value, perr := utils.SplitStringIntoCommandAndArguments(line)
		if perr != nil {
			fmt.Fprintln(out, "parse error:", perr)
			continue
		}

		switch cmd {
		case "exit", "quit":
			return nil
		case "help":
			fmt.Fprintln(out, helpText)
			continue
		}

		resp, xerr := client.Execute(cmd, key, value)
		if xerr != nil {
			return xerr
		}

		fmt.Fprintln(out, format(cmd, resp))

		if err == io.EOF {
			return nil
		}
	}
}

func format(cmd string, resp protocol.Response) string {
	switch resp.Status {
	case protocol.StatusNotFound:
		return "(not found)"
	case protocol.StatusError:
		return "error: " + resp.Payload
	}

	if cmd == protocol.CmdKeys {
		keys, err := protocol.DecodeKeys(resp.Payload)
		if err != nil {
			return "error: " + err.Error()
		}
		if len(keys) == 0 {
			return "(empty)"
		}

		quoted := make([]string, len(keys))
		for i, k := range keys {
			quoted[i] = fmt.Sprintf("%d) %q", i+1, k)
		}
		return strings.Join(quoted, "\n")
	}

	return resp.Payload
}
