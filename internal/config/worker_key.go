package config

type WorkerKeyStruct struct {
	PersistProctorEventsQueue string
	CompletionNoticeQueue     string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProctorEventsQueue: "persist_proctor_events_queue",
	CompletionNoticeQueue:     "completion_notice_queue",
}
