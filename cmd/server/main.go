package main

import (
	"log"

	"phoneverifier/internal/app"
)

// @title                       Phone Verification API
// @version                     1.0
// @description                 OTP verification of user phone numbers.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("server: %v", err)
	}
}
