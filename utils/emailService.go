package utils

import (
	"fmt"
	"log"

	"wellspring/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail delivers one HTML email through SendGrid. Reminder mail is a
// courtesy; failures are logged and reported, never fatal.
func SendEmail(toName, toEmail, subject, htmlBody string) error {
	if config.AppConfig.SendgridApiKey == "" {
		log.Printf("[EMAIL] SENDGRID_API_KEY not set, skipping mail to %s", toEmail)
		return nil
	}

	from := mail.NewEmail("Wellspring", config.AppConfig.EmailSender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)

	client := sendgrid.NewSendClient(config.AppConfig.SendgridApiKey)
	response, err := client.Send(message)
	if err != nil {
		log.Printf("[EMAIL] Error sending to %s: %v", toEmail, err)
		return err
	}
	if response.StatusCode >= 400 {
		log.Printf("[EMAIL] SendGrid returned %d for %s", response.StatusCode, toEmail)
		return fmt.Errorf("sendgrid returned %d", response.StatusCode)
	}
	return nil
}

// SendDailyReminder nudges a user toward the day that just unlocked.
func SendDailyReminder(toName, toEmail, programmeTitle string, dayNumber int) {
	subject := fmt.Sprintf("Day %d of %s is ready", dayNumber, programmeTitle)
	body := fmt.Sprintf(`
	<html>
		<body style="font-family: Arial, sans-serif; background-color: #f4f4f4; padding: 20px;">
			<div style="max-width: 500px; margin: auto; background-color: #ffffff; border-radius: 8px; padding: 30px;">
				<h2 style="color: #2d4a3e;">Hi %s,</h2>
				<p>Day %d of <b>%s</b> has unlocked. Take a few quiet minutes today to read, reflect and log your progress.</p>
				<p style="color: #888; font-size: 12px;">You receive this because you have an active enrollment. Pause the programme any time to stop these nudges.</p>
			</div>
		</body>
	</html>`, toName, dayNumber, programmeTitle)

	if err := SendEmail(toName, toEmail, subject, body); err != nil {
		log.Printf("[REMINDER] Failed to send reminder to %s: %v", toEmail, err)
	}
}
