package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/hamed0406/serverwatch/internal/domain"
)

// Message builders for the three notification shapes. Kept here so the
// monitor stays free of presentation concerns.

func OnlineMessage(target string, status domain.ServiceStatus, downtime time.Duration, hasDowntime bool) (title, text string) {
	title = fmt.Sprintf("🟢 %s is back online", target)

	lines := []string{}
	if status.Descriptor != "" {
		lines = append(lines, "Server: "+status.Descriptor)
	}
	if status.MemberCapacity > 0 {
		lines = append(lines, fmt.Sprintf("Members: %d/%d", status.MemberCount, status.MemberCapacity))
	}
	if hasDowntime {
		lines = append(lines, "Downtime: "+formatDuration(downtime))
	}
	if status.Latency > 0 {
		lines = append(lines, fmt.Sprintf("Latency: %d ms", status.Latency.Milliseconds()))
	}
	return title, strings.Join(lines, "\n")
}

func OfflineMessage(target, reason string) (title, text string) {
	title = fmt.Sprintf("🔴 %s is offline", target)
	return title, "Reason: " + reason
}

func JoinedMessage(target string, names []string, status domain.ServiceStatus) (title, text string) {
	if len(names) == 1 {
		title = fmt.Sprintf("👋 %s joined %s", names[0], target)
	} else {
		title = fmt.Sprintf("👋 %d members joined %s", len(names), target)
		text = strings.Join(names, ", ") + "\n"
	}
	if status.MemberCapacity > 0 {
		text += fmt.Sprintf("Now online: %d/%d", status.MemberCount, status.MemberCapacity)
	}
	return title, strings.TrimSpace(text)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	return d.Truncate(time.Second).String()
}
