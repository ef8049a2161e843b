package summarize

import "fmt"

const summaryPrompt = `Analyze and summarize the following transcription extensively. Provide a rich, detailed summary in a single paragraph, followed by a small section with personal comments or insights.

It is VERY IMPORTANT to format the output in markdown, strictly adhering to the following structure:


[Your single-paragraph summary goes here]

## Comments

- [First comment or insight]
- [Second comment or insight]
- [Third comment or insight]

Transcription:
%s`

const topicsPrompt = `Analyze the following transcription and identify the main overarching topics discussed. Focus on broad, general themes rather than specific details. Aim to provide 3-5 major topics that encompass the entire content. For each topic, provide a concise description and the relevant timestamp range. Format the output in markdown, strictly adhering to the following structure:

# Main Topics

## [Broad Topic 1]
- Timestamp Range: [Start time] - [End time]
- Overview: [Concise description of the broad topic and its significance in the overall discussion]

## [Broad Topic 2]
- Timestamp Range: [Start time] - [End time]
- Overview: [Concise description of the broad topic and its significance in the overall discussion]

(Continue for all identified broad topics, aiming for 3-5 in total)

Remember to focus on overarching themes that capture the essence of the entire transcription, rather than listing many specific subtopics.

Transcription:
%s`

// buildPrompt renders the prompt template for a task.
func buildPrompt(task Task, text string) (string, error) {
	switch task {
	case TaskSummary:
		return fmt.Sprintf(summaryPrompt, text), nil
	case TaskTopics:
		return fmt.Sprintf(topicsPrompt, text), nil
	}
	return "", fmt.Errorf("unknown summarization task %q", task)
}
