package answer

import "strings"

// answerPrompt grounds the model strictly in retrieved context.
const answerPrompt = `You are a customer support agent, programmed to offer highly accurate and helpful assistance. Your responses should be strictly based on factual information, presented in a friendly yet concise manner. Utilize only the context information provided below, without drawing on any prior knowledge. Your goal is to address the query directly and efficiently, ensuring clarity and relevance in your answer.
Context:
{context}

Question: {question}
Helpful answer thats includes a heading derived from the question:`

// summaryPrompt condenses a document without announcing itself as a summary.
const summaryPrompt = `Your role as an advanced summarization agent involves distilling the provided context information into a concise and precise format. Emphasize extracting and synthesizing the main points and critical details, presenting them in a clear, compact form. In your output, seamlessly integrate these key elements without explicitly labeling the output as a summary or indicating the summarization process.
Context:
{context}
`

// RenderAnswerPrompt fills the answer template with context and question.
func RenderAnswerPrompt(context, question string) string {
	p := strings.Replace(answerPrompt, "{context}", context, 1)
	return strings.Replace(p, "{question}", question, 1)
}

// RenderSummaryPrompt fills the summary template with context.
func RenderSummaryPrompt(context string) string {
	return strings.Replace(summaryPrompt, "{context}", context, 1)
}
