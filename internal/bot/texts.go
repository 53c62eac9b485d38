package bot

type texts struct {
	Start          string
	Help           string
	SendPhoto      string
	ImageReceived  string
	Busy           string
	ResetDone      string
	Unknown        string
	LandingCaption string
	AlbumFirstOnly string
}

var textsKO = texts{
	Start: "AI 상세페이지 스튜디오\n\n" +
		"제품 사진 한 장을 보내 주세요. 분석 후 스튜디오 컷, 라이프스타일 컷과 상세페이지를 만들어 드립니다.\n\n" +
		"/generate - 상세페이지 생성\n" +
		"/reset - 새 프로젝트\n" +
		"/help - 도움말",
	Help: "사용 방법\n\n" +
		"1. 제품 사진을 사진 또는 파일로 보냅니다.\n" +
		"2. /generate 로 생성을 시작합니다.\n" +
		"3. /reset 으로 처음부터 다시 시작합니다.",
	SendPhoto:      "먼저 제품 사진을 보내 주세요.",
	ImageReceived:  "이미지를 받았습니다. /generate 로 상세페이지를 생성하세요.",
	Busy:           "이미 생성 중입니다. 잠시만 기다려 주세요.",
	ResetDone:      "초기화되었습니다. 새 제품 사진을 보내 주세요.",
	Unknown:        "알 수 없는 명령입니다. /help 를 확인해 주세요.",
	LandingCaption: "상세페이지 HTML",
	AlbumFirstOnly: "여러 장을 보내셨네요. 첫 번째 사진을 레퍼런스로 사용합니다.",
}

var textsEN = texts{
	Start: "AI Product Page Studio\n\n" +
		"Send one product photo. It gets analysed, then a studio shot, a lifestyle shot and a landing page are produced.\n\n" +
		"/generate - build the page\n" +
		"/reset - start over\n" +
		"/help - help",
	Help: "How it works\n\n" +
		"1. Send the product as a photo or a file.\n" +
		"2. Run /generate.\n" +
		"3. Use /reset to start over.",
	SendPhoto:      "Send a product photo first.",
	ImageReceived:  "Got it. Run /generate to build the page.",
	Busy:           "Already generating, please wait.",
	ResetDone:      "Cleared. Send a new product photo.",
	Unknown:        "Unknown command. See /help.",
	LandingCaption: "Landing page HTML",
	AlbumFirstOnly: "Several photos received. The first one is used as the reference.",
}

func textsFor(lang string) texts {
	if lang == "en" {
		return textsEN
	}
	return textsKO
}
