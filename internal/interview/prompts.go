package interview

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"google.golang.org/genai"

	"github.com/ashureev/mockdy/internal/domain"
)

// Persona describes how one interview type is run.
type Persona struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	SystemInstruction string `json:"-"`
}

// Personas maps each interview type to its interviewer.
var Personas = map[domain.InterviewType]Persona{
	domain.InterviewTechnical: {
		Title:       "Technical Interview",
		Description: "NeetCode 150 problems using the UMPIRE strategy.",
		SystemInstruction: `You are a strict but fair Senior Software Engineer at a top tech company conducting a technical interview for a New Grad position.

Follow the **UMPIRE** method framework to guide the interview:
1. **Understand**: Start by presenting a RANDOM coding problem from 'NeetCode 150'. Wait for the candidate to ask clarifying questions (constraints, inputs, outputs). If they don't, prompt them to think about edge cases.
2. **Match & Plan**: Before they write code, ask for their approach. Encourage them to explain their logic or pseudocode first. Identifying the correct pattern/data structure is key.
3. **Implement**: Allow them to write the solution. The preferred language is **Python**. If the candidate asks about language, tell them to use Python.
4. **Review**: Ask them to walk through a test case or dry run their code.
5. **Evaluate**: Finally, ask for Time and Space complexity (Big O).

General Rules:
- Do NOT solve the problem for the candidate.
- If they are stuck, offer small, progressive hints.
- Evaluate their code for correctness, edge cases, and style (Pythonic code).
- Keep your responses concise and conversational.`,
	},
	domain.InterviewBehavioral: {
		Title:       "Behavioral Interview",
		Description: "STAR method practice for culture fit.",
		SystemInstruction: `You are a Hiring Manager at a tech company.
1. Conduct a behavioral interview using the STAR method (Situation, Task, Action, Result).
2. Start by asking: "Tell me about yourself."
3. Follow up with questions like "Tell me about a time you failed" or "Describe a conflict with a coworker."
4. Dig deep. If a user is vague, ask clarifying questions.
5. Be professional and empathetic.`,
	},
	domain.InterviewSystemDesign: {
		Title:       "System Design",
		Description: "Design scalable systems (e.g., URL Shortener).",
		SystemInstruction: `You are a Principal Architect.
1. Ask the candidate to design a system suitable for a new grad / junior level (e.g., Design a URL Shortener, Design Instagram Feed, Design a Chat App).
2. Focus on high-level components: Client, API Gateway, Load Balancer, Web Servers, Database (SQL vs NoSQL), Caching.
3. Do not expect deep distributed systems knowledge, but check for basic understanding of scalability and trade-offs.
4. Guide them through the process: Requirements gathering -> High Level Design -> Deep Dive.`,
	},
}

// InterviewerNames is the pool personas are named from.
var InterviewerNames = []string{
	"Alex", "Jordan", "Taylor", "Casey", "Morgan", "Jamie", "Riley",
	"Avery", "Sarah", "Michael", "David", "Emily", "Chris", "Pat",
}

func randomInterviewer() string {
	return InterviewerNames[rand.IntN(len(InterviewerNames))]
}

func systemInstruction(t domain.InterviewType, interviewer string) string {
	return fmt.Sprintf("%s\n\nIMPORTANT: Your name is %s. Always maintain this persona and introduce yourself as %s.",
		Personas[t].SystemInstruction, interviewer, interviewer)
}

// openingPrompt is the hidden first user turn that makes the model greet the candidate.
func openingPrompt(t domain.InterviewType, interviewer string, problem *domain.ProblemInfo) string {
	if t == domain.InterviewTechnical && problem != nil {
		return fmt.Sprintf("Introduce yourself as %s. Present LeetCode #%d %q naturally, without mentioning LeetCode or the problem name. Describe the problem clearly, then follow the UMPIRE method.",
			interviewer, problem.ID, problem.Name)
	}
	return fmt.Sprintf("The interview is starting now. Please introduce yourself as %s and present the first question/problem as per your instructions.", interviewer)
}

func evaluationStrategy(t domain.InterviewType) string {
	switch t {
	case domain.InterviewTechnical:
		return `Strictly evaluate using the **UMPIRE** strategy:
1. **Understand**: Did the candidate clarify inputs/outputs/constraints?
2. **Match**: Did they identify the correct pattern/data structure?
3. **Plan**: Did they explain their approach/pseudocode BEFORE coding?
4. **Implement**: Is the code correct, readable, and functional?
5. **Review**: Did they dry-run/debug their code with examples?
6. **Evaluate**: Did they correctly analyze Time/Space complexity?

Mention missed UMPIRE steps in "Weaknesses".`
	case domain.InterviewBehavioral:
		return `Evaluate adherence to the **STAR** method (Situation, Task, Action, Result).
Comment on clarity, impact, and ownership.`
	case domain.InterviewSystemDesign:
		return `Evaluate the solution along these axes:
- Requirements: functional + non-functional clarity
- High-level architecture and component decomposition
- Data modeling and choice of storage
- API & contracts
- Scalability, reliability, and failure handling
- Tradeoffs and alternative designs

Highlight missing or weak sections in "Weaknesses".`
	}
	return ""
}

// gradingPrompt renders the transcript, the candidate's notes, and the rubric.
func gradingPrompt(t domain.InterviewType, messages []domain.Message, codeOrNotes string) string {
	var transcript strings.Builder
	for i, m := range messages {
		if i > 0 {
			transcript.WriteByte('\n')
		}
		transcript.WriteString(strings.ToUpper(string(m.Role)))
		transcript.WriteString(": ")
		transcript.WriteString(m.Text)
	}

	return fmt.Sprintf(`INTERVIEW TYPE: %s

TRANSCRIPT:
%s

USER NOTES/CODE:
%s

You are an expert Interview Bar Raiser. Analyze the transcript and user's work above.
%s
Provide a structured evaluation in JSON format.

1. Score: 0-100 based on accuracy, communication, efficiency, and adherence to the interview strategy (UMPIRE/STAR).
2. Summary: A 2-3 sentence overview of performance.
3. Strengths: 3 key bullet points.
4. Weaknesses: 3 key bullet points.
5. OptimalSolution: The standard answer (code for technical, architectural summary for system design, or STAR example for behavioral).
`, t, transcript.String(), codeOrNotes, evaluationStrategy(t))
}

// FeedbackSchema constrains the grading response.
var FeedbackSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":           {Type: genai.TypeInteger},
		"summary":         {Type: genai.TypeString},
		"strengths":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"weaknesses":      {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		"optimalSolution": {Type: genai.TypeString},
	},
	Required: []string{"score", "summary", "strengths", "weaknesses", "optimalSolution"},
}
