package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Bitmax Bots API
// @version         0.1.0
// @description     Paper-trading strategy bots: strategies, simulated portfolios, trades and the evaluation tick.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
