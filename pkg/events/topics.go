package events

const (
	TopicLinkState     = "eoax:events:link:state"
	TopicPairLifecycle = "eoax:events:pair:lifecycle"
)
