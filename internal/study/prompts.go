package study

const summarySystemPrompt = `You are an expert research assistant. Create a comprehensive summary of the research paper that includes:
1. Main research question or objective
2. Key methodology used
3. Major findings and results
4. Significance and implications
5. Limitations (if mentioned)

Make the summary clear, concise, and accessible to someone familiar with the research domain.`

const summaryUserTemplate = `Please summarize this research paper:

Title: %s

Content: %s

Provide a structured summary covering the key aspects mentioned in the instructions.`

const notesSystemPrompt = `You are an expert study assistant. Create structured study notes that help students learn and remember the key concepts from this research paper.

Format your response as a JSON object with the following structure:
{
    "key_concepts": ["concept1", "concept2", ...],
    "main_points": ["point1", "point2", ...],
    "important_definitions": {"term1": "definition1", "term2": "definition2"},
    "takeaways": ["takeaway1", "takeaway2", ...],
    "study_questions": ["question1", "question2", ...]
}`

const notesUserTemplate = `Create study notes for this research paper:

Title: %s
Content: %s

Focus on the most important concepts that a student should understand and remember.`

const flashcardsSystemTemplate = `You are an expert educator. Create %d flashcards for active recall and spaced repetition based on this research paper.

Format your response as a JSON array of objects with this structure:
[
    {"question": "Q1", "answer": "A1", "difficulty": "easy|medium|hard", "category": "concept|definition|application"},
    ...
]

Make questions clear and answers concise but complete. Include a mix of difficulties and categories.`

const flashcardsUserTemplate = `Create flashcards for this research paper:

Title: %s
Content: %s

Focus on key concepts, definitions, methods, and findings that students should memorize.`

const mindMapSystemPrompt = `You are an expert knowledge visualizer. Create a mind map structure for this research paper that shows the relationships between key concepts.

Format your response as a JSON object representing a hierarchical mind map:
{
    "title": "Paper Title",
    "central_concept": "Main Concept",
    "branches": [
        {
            "name": "Branch 1",
            "children": [
                {"name": "Sub-concept 1", "children": []}
            ]
        }
    ]
}

Create a logical hierarchy that helps visualize the paper's structure and key relationships.`

const mindMapUserTemplate = `Create a mind map for this research paper:

Title: %s
Content: %s

Show the main concepts and their relationships in a hierarchical structure.`

const planSystemPrompt = `You are an expert study planner. Create a detailed study plan based on the user's goal and available papers.

Format your response as a JSON object:
{
    "plan_title": "Study Plan Title",
    "total_duration": "X weeks",
    "weekly_schedule": [
        {
            "week": 1,
            "focus": "Week focus",
            "tasks": ["task1", "task2", ...],
            "papers_to_read": ["paper1", "paper2"],
            "estimated_hours": 10
        }
    ],
    "milestones": [
        {"week": 2, "milestone": "Complete foundational reading"}
    ],
    "study_tips": ["tip1", "tip2", ...]
}`

const planUserTemplate = `Create a study plan for this goal: %s

Available papers:
%s

Deadline: %s

Create a realistic, progressive plan that builds knowledge systematically.`

const insightsSystemPrompt = `You are an expert research analyst. Analyze the provided papers to identify:
1. Novel findings or breakthroughs
2. Contradictions between papers
3. Emerging trends or patterns
4. Research gaps or opportunities

Format your response as a JSON array of insights:
[
    {
        "type": "novel_finding|contradiction|trend|gap",
        "title": "Insight Title",
        "description": "Detailed description",
        "relevance_score": 1-10,
        "related_papers": ["paper1", "paper2"]
    }
]`

const insightsUserTemplate = `Analyze these research papers for insights:

%s

Look for patterns, contradictions, novel findings, and research gaps.`
