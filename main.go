package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(0)

	args := getArgs()
	if args == nil {
		os.Exit(1)
	}

	srv := NewServer(Config{
		ListenHost: "",
		ListenPort: args.Port,
		ServerName: "ircd",
		Password:   args.Password,
	})

	if err := srv.Run(); err != nil {
		log.Printf("%+v", err)
		os.Exit(1)
	}
}
