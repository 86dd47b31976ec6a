package local

import (
	"fmt"
	"time"
)

var monthNames = [...]string{
	"Ocak", "Şubat", "Mart", "Nisan", "Mayıs", "Haziran",
	"Temmuz", "Ağustos", "Eylül", "Ekim", "Kasım", "Aralık",
}

var dayNames = [...]string{
	"Pazar", "Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi",
}

// FormatDate renders t as "14 Ekim 2026 Çarşamba".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d %s", t.Day(), monthNames[t.Month()-1], t.Year(), dayNames[t.Weekday()])
}

type city struct {
	key, name, region string
}

var cities = []city{
	{"istanbul", "İstanbul", "Marmara"},
	{"ankara", "Ankara", "İç Anadolu"},
	{"izmir", "İzmir", "Ege"},
}

type currency struct {
	keywords     []string
	name, symbol string
}

var currencies = []currency{
	{[]string{"usd", "dolar"}, "Amerikan Doları", "$"},
	{[]string{"eur", "euro", "avro"}, "Euro", "€"},
	{[]string{"gbp", "sterlin"}, "İngiliz Sterlini", "£"},
	{[]string{"try", "lira"}, "Türk Lirası", "₺"},
}

// builtinFacts only match narrow questions; anything about live prices or
// weather falls through to the other sources.
var builtinFacts = func() []Fact {
	var out []Fact
	for _, c := range cities {
		out = append(out, Fact{
			Keywords: []string{c.key + " hangi bölge", c.key + " bölgesi"},
			Answer:   fmt.Sprintf("%s, %s Bölgesi'nde yer alır.", c.name, c.region),
		})
	}
	for _, cur := range currencies {
		var kws []string
		for _, k := range cur.keywords {
			kws = append(kws, k+" sembolü", k+" simgesi")
		}
		out = append(out, Fact{
			Keywords: kws,
			Answer:   fmt.Sprintf("%s simgesi: %s", cur.name, cur.symbol),
		})
	}
	return out
}()
