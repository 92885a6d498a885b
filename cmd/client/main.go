// Command client is the interactive trading terminal REPL: it sends one
// command line per prompt and prints each NUL-separated segment of the
// response.
package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
)

const defaultPort = "8100"

func main() {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Enter server IP address or Enter for localhost: ")
	host, _ := reader.ReadString('\n')
	host = strings.TrimSpace(host)
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	buf := make([]byte, 1024)
	for {
		fmt.Print("c: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if _, err := conn.Write([]byte(line)); err != nil {
			log.Fatalf("Failed to send command: %v", err)
		}

		n, err := conn.Read(buf)
		if err != nil {
			log.Fatalf("Failed to read response: %v", err)
		}

		for _, segment := range strings.Split(string(buf[:n]), "\x00") {
			if segment == "200 OK" {
				fmt.Println("c:", segment)
			} else {
				fmt.Println(segment)
			}
		}

		if line == "QUIT" {
			return
		}
	}
}
