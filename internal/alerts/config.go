// internal/alerts/config.go
package alerts

type Config struct {
	AWSRegion string
	FromEmail string
	ToEmail   string
	SMSNumber string
	SMSEnable bool
}
