package services

import (
	"fmt"
	"strings"
	"time"

	classroom "google.golang.org/api/classroom/v1"
	forms "google.golang.org/api/forms/v1"

	"github.com/yungbote/gradebridge-backend/internal/types"
)

const (
	workTypeAssignment     = "ASSIGNMENT"
	workTypeShortAnswer    = "SHORT_ANSWER_QUESTION"
	workTypeMultipleChoice = "MULTIPLE_CHOICE_QUESTION"

	submissionStateTurnedIn = "TURNED_IN"
	submissionStateReturned = "RETURNED"
)

// normalizeMaterials flattens the external material variants into the shape
// stored on assignments and forum messages.
func normalizeMaterials(materials []*classroom.Material) []types.Attachment {
	var out []types.Attachment
	for _, m := range materials {
		if m == nil {
			continue
		}
		switch {
		case m.DriveFile != nil && m.DriveFile.DriveFile != nil:
			df := m.DriveFile.DriveFile
			out = append(out, types.Attachment{
				Type:  types.AttachmentTypeDriveFile,
				Title: df.Title,
				URL:   df.AlternateLink,
				ID:    df.Id,
			})
		case m.YoutubeVideo != nil:
			out = append(out, types.Attachment{
				Type:  types.AttachmentTypeVideo,
				Title: m.YoutubeVideo.Title,
				URL:   m.YoutubeVideo.AlternateLink,
				ID:    m.YoutubeVideo.Id,
			})
		case m.Form != nil:
			out = append(out, types.Attachment{
				Type:  types.AttachmentTypeForm,
				Title: m.Form.Title,
				URL:   m.Form.FormUrl,
			})
		case m.Link != nil:
			out = append(out, types.Attachment{
				Type:  types.AttachmentTypeLink,
				Title: m.Link.Title,
				URL:   m.Link.Url,
			})
		}
	}
	return out
}

// driveFileURL picks a viewable URL for a drive attachment: the alternate
// link when present, otherwise one synthesized from the file id. PDFs get an
// embeddable preview link; everything else goes through the uc export view.
func driveFileURL(df *classroom.DriveFile) string {
	if df == nil {
		return ""
	}
	if df.AlternateLink != "" {
		return df.AlternateLink
	}
	if df.Id == "" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(df.Title), ".pdf") {
		return fmt.Sprintf("https://drive.google.com/file/d/%s/preview", df.Id)
	}
	return fmt.Sprintf("https://drive.google.com/uc?export=view&id=%s", df.Id)
}

// extractFileURLs maps submission attachments to URLs, preferring drive
// links and falling back to generic link/video URLs.
func extractFileURLs(attachments []*classroom.Attachment) []string {
	var urls []string
	for _, att := range attachments {
		if att == nil {
			continue
		}
		switch {
		case att.DriveFile != nil:
			if u := driveFileURL(att.DriveFile); u != "" {
				urls = append(urls, u)
			}
		case att.Link != nil && att.Link.Url != "":
			urls = append(urls, att.Link.Url)
		case att.YouTubeVideo != nil && att.YouTubeVideo.AlternateLink != "":
			urls = append(urls, att.YouTubeVideo.AlternateLink)
		}
	}
	return urls
}

func mapSubmissionState(state string) string {
	switch state {
	case submissionStateTurnedIn:
		return types.SubmissionStatusSubmitted
	case submissionStateReturned:
		return types.SubmissionStatusReturned
	default:
		return types.SubmissionStatusDraft
	}
}

func isTurnedInOrReturned(state string) bool {
	return state == submissionStateTurnedIn || state == submissionStateReturned
}

func submissionHasAttachments(sub *classroom.StudentSubmission) bool {
	return sub != nil && sub.AssignmentSubmission != nil && len(sub.AssignmentSubmission.Attachments) > 0
}

// composeDueDate joins the external split date and time-of-day parts into a
// single UTC timestamp. A missing date yields nil; a missing time means
// end-of-day is not assumed, just midnight.
func composeDueDate(d *classroom.Date, t *classroom.TimeOfDay) *time.Time {
	if d == nil || d.Year == 0 {
		return nil
	}
	hour, minute := 0, 0
	if t != nil {
		hour = int(t.Hours)
		minute = int(t.Minutes)
	}
	due := time.Date(int(d.Year), time.Month(d.Month), int(d.Day), hour, minute, 0, 0, time.UTC)
	return &due
}

// submissionStateTime is the timestamp the attempt conflict key is built
// from: the most recent turned-in state transition, falling back to the
// submission's update then creation time. The same external submission
// always yields the same value, which is what makes attempt upserts
// idempotent across runs.
func submissionStateTime(sub *classroom.StudentSubmission) time.Time {
	if sub == nil {
		return time.Time{}
	}
	var latest time.Time
	for _, h := range sub.SubmissionHistory {
		if h == nil || h.StateHistory == nil {
			continue
		}
		if h.StateHistory.State != submissionStateTurnedIn && h.StateHistory.State != submissionStateReturned {
			continue
		}
		if ts := parseTime(h.StateHistory.StateTimestamp); ts != nil && ts.After(latest) {
			latest = *ts
		}
	}
	if !latest.IsZero() {
		return latest
	}
	if ts := parseTime(sub.UpdateTime); ts != nil {
		return *ts
	}
	if ts := parseTime(sub.CreationTime); ts != nil {
		return *ts
	}
	return time.Time{}
}

// extractAnswer pulls whichever answer shape the submission carries; nil
// when it has neither.
func extractAnswer(sub *classroom.StudentSubmission) *string {
	if sub == nil {
		return nil
	}
	if sub.ShortAnswerSubmission != nil {
		return &sub.ShortAnswerSubmission.Answer
	}
	if sub.MultipleChoiceSubmission != nil {
		return &sub.MultipleChoiceSubmission.Answer
	}
	return nil
}

// formMaterialURL returns the URL of the first attached form, if any.
func formMaterialURL(cw *classroom.CourseWork) (string, bool) {
	if cw == nil {
		return "", false
	}
	for _, m := range cw.Materials {
		if m != nil && m.Form != nil && m.Form.FormUrl != "" {
			return m.Form.FormUrl, true
		}
	}
	return "", false
}

// formIDFromURL digs the form id out of a docs.google.com/forms URL
// (".../forms/d/<id>/..." or ".../forms/d/e/<id>/...").
func formIDFromURL(formURL string) string {
	marker := "/forms/d/"
	idx := strings.Index(formURL, marker)
	if idx < 0 {
		return ""
	}
	rest := formURL[idx+len(marker):]
	rest = strings.TrimPrefix(rest, "e/")
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// questionsFromForm translates form items into quiz questions. Choice items
// become multiple_choice, text items short_answer; anything else (sections,
// media, grids) is skipped.
func questionsFromForm(form *forms.Form) []types.QuizQuestion {
	if form == nil {
		return nil
	}
	var questions []types.QuizQuestion
	for _, item := range form.Items {
		if item == nil || item.QuestionItem == nil || item.QuestionItem.Question == nil {
			continue
		}
		q := item.QuestionItem.Question
		points := 1.0
		if q.Grading != nil && q.Grading.PointValue > 0 {
			points = float64(q.Grading.PointValue)
		}
		switch {
		case q.ChoiceQuestion != nil:
			options := make([]string, 0, len(q.ChoiceQuestion.Options))
			for _, opt := range q.ChoiceQuestion.Options {
				if opt != nil {
					options = append(options, opt.Value)
				}
			}
			questions = append(questions, types.QuizQuestion{
				ID:       item.ItemId,
				Type:     types.QuestionTypeMultipleChoice,
				Question: item.Title,
				Options:  options,
				Points:   points,
			})
		case q.TextQuestion != nil:
			questions = append(questions, types.QuizQuestion{
				ID:       item.ItemId,
				Type:     types.QuestionTypeShortAnswer,
				Question: item.Title,
				Points:   points,
			})
		}
	}
	return questions
}

// questionFromCourseWork synthesizes the single question carried by
// standalone question-type coursework. Points default to 1 unless the
// coursework declares its own max.
func questionFromCourseWork(cw *classroom.CourseWork) *types.QuizQuestion {
	if cw == nil {
		return nil
	}
	points := 1.0
	if cw.MaxPoints > 0 {
		points = cw.MaxPoints
	}
	switch cw.WorkType {
	case workTypeShortAnswer:
		return &types.QuizQuestion{
			ID:       cw.Id,
			Type:     types.QuestionTypeShortAnswer,
			Question: cw.Title,
			Points:   points,
		}
	case workTypeMultipleChoice:
		var options []string
		if cw.MultipleChoiceQuestion != nil {
			options = cw.MultipleChoiceQuestion.Choices
		}
		return &types.QuizQuestion{
			ID:       cw.Id,
			Type:     types.QuestionTypeMultipleChoice,
			Question: cw.Title,
			Options:  options,
			Points:   points,
		}
	default:
		return nil
	}
}

func parseTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &ts
}
