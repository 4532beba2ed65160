// Package router performs lightweight keyword-based task detection on
// incoming user messages. The result picks which capability to emphasize;
// it never restricts which tools the model may call.
package router

import "strings"

// TaskType identifies the primary capability a message asks for.
type TaskType string

const (
	TaskCode          TaskType = "code"
	TaskSalesforce    TaskType = "salesforce"
	TaskDocument      TaskType = "document"
	TaskImage         TaskType = "image"
	TaskPDFConversion TaskType = "pdf_conversion"
	TaskInstagramReel TaskType = "instagram_reel"
	TaskYouTubeVideo  TaskType = "youtube_video"
	TaskQA            TaskType = "qa"
)

type route struct {
	keywords []string
	task     TaskType
}

// Ordered: earlier routes win. Specific domains before the generic
// code route, which has the loosest keywords.
var routes = []route{
	{[]string{"apex", "lwc", "soql", "salesforce", "trigger", "batch", "governor", "cpq"}, TaskSalesforce},
	{[]string{"instagram", "reel", "tiktok", "short video"}, TaskInstagramReel},
	{[]string{"youtube", "video script", "youtube script", "yt video"}, TaskYouTubeVideo},
	{[]string{"convert to pdf", "image to pdf", "word to pdf", "excel to pdf", "pptx to pdf"}, TaskPDFConversion},
	{[]string{"modify document", "edit word", "edit excel", "edit docx", "update spreadsheet"}, TaskDocument},
	{[]string{"resize image", "watermark", "crop image", "convert image", "adjust brightness"}, TaskImage},
	{[]string{"write code", "debug", "fix code", "function", "class", "script", "implement"}, TaskCode},
}

// Detect returns the primary task type of a user message. Messages that
// match no route are general Q&A.
func Detect(message string) TaskType {
	lower := strings.ToLower(message)
	for _, r := range routes {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.task
			}
		}
	}
	return TaskQA
}
