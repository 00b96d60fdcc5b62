package handler

import (
	"fmt"
	"strconv"
	"strings"

	"medterms/internal/domain"
	"medterms/internal/quiz"
	"medterms/internal/service"

	tele "gopkg.in/telebot.v3"
)

const (
	barWidth = 10

	prefixCategory = "cat_"
	prefixAnswer   = "ans_"

	mainMenuText = "🏠 Main menu\n\nPick a category to practice Hebrew medical terms."
	errorText    = "Something went wrong. Please try again later."

	writeFailedText = "⚠️ Your answer was not saved. Your quiz continues, but this card won't count towards mastery."
)

// view is a rendered message with its keyboard
type view struct {
	text   string
	markup *tele.ReplyMarkup
}

// progressBar renders a percentage as a fixed-width bar
func progressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * barWidth / 100
	return strings.Repeat("▰", filled) + strings.Repeat("▱", barWidth-filled)
}

func categoriesView(summaries []service.CategorySummary, lang domain.Lang) view {
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(summaries)+1)

	var b strings.Builder
	b.WriteString("📚 Categories\n\n")
	for _, s := range summaries {
		name := s.Category.Name(lang)
		fmt.Fprintf(&b, "%s\n%s %d%% (%d terms)\n\n", name, progressBar(s.Mastery), s.Mastery, s.TermCount)
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("%s · %d%%", name, s.Mastery),
			prefixCategory+strconv.FormatInt(s.Category.ID, 10),
		)))
	}
	if len(summaries) == 0 {
		b.WriteString("No categories yet.")
	}

	rows = append(rows, markup.Row(btnMainMenu))
	markup.Inline(rows...)
	return view{text: b.String(), markup: markup}
}

func cardView(category domain.Category, card quiz.Card, lang domain.Lang) view {
	var b strings.Builder
	fmt.Fprintf(&b, "%s · %d/%d\n\n", category.Name(lang), card.Index+1, card.Total)
	fmt.Fprintf(&b, "❓ %s\n", card.Prompt)

	if card.Answered {
		if card.Correct {
			b.WriteString("\n✅ Correct!")
		} else {
			fmt.Fprintf(&b, "\n❌ Wrong. Correct answer: %s", card.Term.CorrectAnswer())
		}
	}

	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(card.Options)+2)
	for i, option := range card.Options {
		label := option
		if card.Answered {
			switch {
			case option == card.Term.CorrectAnswer():
				label = "✅ " + option
			case option == card.Selected:
				label = "❌ " + option
			}
		}
		rows = append(rows, markup.Row(markup.Data(label, prefixAnswer+strconv.Itoa(i))))
	}

	nav := tele.Row{}
	if card.Index > 0 {
		nav = append(nav, btnBack)
	}
	if card.Answered {
		nav = append(nav, btnExample)
	}
	nav = append(nav, btnNext)
	rows = append(rows, nav, markup.Row(btnFinish))

	markup.Inline(rows...)
	return view{text: b.String(), markup: markup}
}

func completeView(category domain.Category, score, total int, lang domain.Lang) view {
	text := fmt.Sprintf("🏁 %s finished!\n\nScore: %d/%d", category.Name(lang), score, total)

	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(markup.Data("🔁 Again", prefixCategory+strconv.FormatInt(category.ID, 10))),
		markup.Row(btnCategories, btnMainMenu),
	)
	return view{text: text, markup: markup}
}

func resetConfirmView() view {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(btnResetConfirm),
		markup.Row(btnMainMenu),
	)
	return view{
		text:   "⚠️ This deletes all your answers and mastery. Continue?",
		markup: markup,
	}
}

func searchText(query string, terms []domain.Term) string {
	if len(terms) == 0 {
		return fmt.Sprintf("🔍 Nothing found for %q", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🔍 Results for %q:\n\n", query)
	for i, t := range terms {
		fmt.Fprintf(&b, "%d. %s — %s", i+1, t.Translations.Primary, t.Translations.Secondary)
		if t.Translations.Tertiary != "" {
			fmt.Fprintf(&b, " — %s", t.Translations.Tertiary)
		}
		b.WriteString("\n")
	}
	return b.String()
}
