package brapi

import "strings"

// Local fallback tables for when the remote search endpoint is down or rate
// limited. Deliberately small: just the names people actually type.
var localStocks = map[string]string{
	"PETR4":  "Petrobras",
	"VALE3":  "Vale",
	"ITUB4":  "Itaú Unibanco",
	"BBDC4":  "Bradesco",
	"ABEV3":  "Ambev",
	"WEGE3":  "Weg",
	"RENT3":  "Localiza",
	"SUZB3":  "Suzano",
	"RADL3":  "Raia Drogasil",
	"ELET3":  "Eletrobras",
	"BBAS3":  "Banco do Brasil",
	"SANB11": "Santander",
	"CMIG4":  "Cemig",
	"EMBR3":  "Embraer",
	"VIVT3":  "Telefônica Brasil",
	"LREN3":  "Lojas Renner",
	"GGBR4":  "Gerdau",
	"JBSS3":  "JBS",
	"SBSP3":  "Sabesp",
	"RAIL3":  "Rumo",
}

var localFunds = map[string]string{
	"HGLG11": "CSHG Logística",
	"XPLG11": "XP Log",
	"VISC11": "Vinci Shopping Centers",
	"BRCR11": "BTG Pactual Corporate",
	"XPML11": "XP Malls",
	"KNRI11": "Kinea Renda Imobiliária",
	"HFOF11": "Hedge Top FOFII",
	"VILG11": "Vinci Logística",
	"BTLG11": "BTG Pactual Logística",
	"KNIP11": "Kinea Índices de Preços",
}

func searchLocal(query string, limit int, instrumentType string) []SearchResult {
	assets := map[string]string{}
	switch instrumentType {
	case "fund":
		assets = localFunds
	case "stock":
		assets = localStocks
	default:
		for k, v := range localStocks {
			assets[k] = v
		}
		for k, v := range localFunds {
			assets[k] = v
		}
	}

	q := strings.ToUpper(strings.TrimSpace(query))
	results := []SearchResult{}

	appendResult := func(ticker, name string) {
		for _, r := range results {
			if r.Ticker == ticker {
				return
			}
		}
		results = append(results, SearchResult{
			Ticker: ticker,
			Name:   name,
			Market: "B3",
			Type:   classifyTicker(ticker),
		})
	}

	// exact match first
	if name, ok := assets[q]; ok {
		appendResult(q, name)
	}
	for ticker, name := range assets {
		if len(results) >= limit {
			break
		}
		if strings.Contains(ticker, q) || strings.Contains(strings.ToUpper(name), q) {
			appendResult(ticker, name)
		}
	}
	return results
}
