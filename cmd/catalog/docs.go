package main

//go:generate swag init -g cmd/catalog/main.go -o docs

// @title           Movie Catalog API
// @version         0.1.0
// @description     Movie browsing with cold-start seed answers and background population.
// @host            localhost:5000
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
