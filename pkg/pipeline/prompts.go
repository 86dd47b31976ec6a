package pipeline

import (
	"fmt"
	"strings"
)

// ExtractionPrompt instructs the generator to answer from page text or reply with the miss token.
const ExtractionPrompt = "Verilen metin içeriğinden soruya en uygun yanıtı çıkar. Eğer uygun yanıt bulunamazsa None döndür."

// MissToken is the extraction reply meaning the text holds no answer.
const MissToken = "none"

// DefaultSystemPrompt returns the generation instruction for an expert topic.
func DefaultSystemPrompt(topic string) string {
	return fmt.Sprintf("Sen bir %s uzmanısın. Kullanıcının sorduğu soruları detaylı ve doğru şekilde yanıtla. "+
		"Eğer soruyu yanıtlayamıyorsan veya emin değilsen, bunu belirt.", topic)
}

func extractionInput(query, text string) string {
	return fmt.Sprintf("Soru: %s\n\nMetin: %s\n\nYanıt:", query, text)
}

func isMissToken(reply string) bool {
	return strings.EqualFold(strings.Trim(strings.TrimSpace(reply), `."'`), MissToken)
}
