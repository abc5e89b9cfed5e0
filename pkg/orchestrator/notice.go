package orchestrator

import "github.com/venquis/contractchat/pkg/utils/logging"

type NoticeKind int

const (
	NoticeNoConversation NoticeKind = iota
	NoticeSendFailed
	NoticeAIProcessingError
	NoticeUploadRejected
	NoticeUploadFailed
	NoticeUploadSucceeded
	NoticeAnalysisError
	NoticeProcessingError
)

// Error reports whether the notice describes a failure
func (k NoticeKind) Error() bool {
	return k != NoticeUploadSucceeded
}

// Notice is a user-facing message about the outcome of an action
type Notice struct {
	Kind        NoticeKind
	Title       string
	Description string
	FileName    string
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

type logNotifier struct{}

func (logNotifier) Notify(n Notice) {
	logging.Default().Info("notice", "title", n.Title, "description", n.Description)
}
