package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-arena/internal/client"
)

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.String("port", "5555", "server port")
	username := flag.String("username", "Player", "your username")
	avatar := flag.String("avatar", "", "your avatar")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		cancel()
	}()

	player := client.New(logger, *username, *avatar, os.Stdin, os.Stdout)
	if err := player.Run(ctx, net.JoinHostPort(*host, *port)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
