package properties

import "os"

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func ArchiveClientID() string {
	return os.Getenv("ARCHIVE_CLIENT_ID")
}
func ArchiveClientSecret() string {
	return os.Getenv("ARCHIVE_CLIENT_SECRET")
}
func ArchiveTokenURL() string {
	return os.Getenv("ARCHIVE_TOKEN_URL")
}
func ArchiveProcessURL() string {
	return os.Getenv("ARCHIVE_PROCESS_URL")
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}
func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
