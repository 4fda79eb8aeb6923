package links

const (
	ChannelForm = "form"
	ChannelAPI  = "api"
)

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type CreateLinkInput struct {
	OwnerID string
	URL     string
	Channel string
}
