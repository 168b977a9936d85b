package pipeline

// analysisSystemPrompt frames the model as a CSV-processing analyst that
// must answer with structured JSON.
const analysisSystemPrompt = "You are a financial analysis assistant that processes CSV transaction data and returns structured JSON results."

// buildAnalysisPrompt constructs the analysis prompt for one CSV export.
func buildAnalysisPrompt(csvData string) string {
	return "Analyze the following CSV data representing financial transactions.\n" +
		"The CSV has headers and contains bank transactions.\n\n" +
		"Extract the following information:\n" +
		"1. Parse each transaction into a structured format with date, description, amount, and categorize each transaction\n" +
		"2. Determine if each transaction is income or expense\n" +
		"3. Group transactions by category and calculate the total amount for each category\n" +
		"4. Calculate the total income, total expenses, and net savings\n\n" +
		"Return the results as a single JSON object with these keys:\n" +
		"- \"transactions\": array of {\"id\", \"date\" (\"YYYY-MM-DD\"), \"description\", \"amount\" (number, positive for income, negative for expenses), \"category\", \"type\" (\"income\" or \"expense\")}\n" +
		"- \"categoryBreakdown\": array of {\"category\", \"amount\" (number), \"percentage\" (number 0-100)}\n" +
		"- \"summary\": {\"totalIncome\", \"totalExpenses\", \"netSavings\"} (numbers)\n\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Do NOT use ```json or any Markdown.\n\n" +
		"CSV data:\n" +
		csvData
}
