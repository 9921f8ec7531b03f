package main

import (
	"log"

	"wellspring/config"
	programmeControllers "wellspring/controllers/programme"
	"wellspring/database"
	"wellspring/events"
	"wellspring/progression"
	programmeRoutes "wellspring/routers/programmeRoutes"
	"wellspring/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	// Downstream event sink: always log, additionally POST to a webhook
	// when one is configured.
	sink := events.MultiSink{events.LogSink{}}
	if config.AppConfig.EventWebhookURL != "" {
		sink = append(sink, events.NewWebhookSink(config.AppConfig.EventWebhookURL))
	}

	engine := progression.New(database.Database.Db, progression.SystemClock{}, sink)
	programmeControllers.Init(engine)

	utils.InitializeReminderScheduler()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	programmeRoutes.SetupProgrammeRoutes(app)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
