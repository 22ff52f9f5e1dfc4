package dialog

import (
	"fmt"
	"strings"

	"github.com/m3rciful/cbrbot/bots/cbr/conversion"
	"github.com/m3rciful/cbrbot/bots/cbr/currency"
)

const (
	rateFormat        = "Курс %s на %s составляет %s рублей"
	rateFailureFormat = "Не удалось получить текущий курс %s. Попробуйте позже."
	conversionFormat  = "%s %s = %s руб. (По курсу ЦБ РФ на %s)"

	startFormat = `Добро пожаловать, %s!

Здесь Вы сможете узнать официальные курсы валют на сегодня, установленные ЦБ РФ.

Для этого воспользуйтесь командами:
/usd - курс доллара США;
/eur - курс евро;
/cad - курс канадского доллара;
/gbp - курс фунта стерлингов;
/chf - курс швейцарского франка;
/cny - курс китайского юаня;
/converter - режим конвертации валюты;
/help - справочная информация.`

	helpText = `Справочная информация.

Для получения текущих курсов валют воспользуйтесь командами:
/usd - курс доллара;
/eur - курс евро;
/cad - курс канадского доллара;
/gbp - курс фунта стерлингов;
/chf - курс швейцарского франка;
/cny - курс китайского юаня;
/converter - режим конвертации валюты.`

	unknownCommandText = `Не удалось распознать команду!

Для получения текущих курсов валют воспользуйтесь командами:
/usd - курс доллара;
/eur - курс евро;
/cad - курс канадского доллара;
/gbp - курс фунта стерлингов;
/chf - курс швейцарского франка;
/cny - курс китайского юаня;
/converter - режим конвертации валюты.`

	converterExitText = `Вы вышли из режима "Конвертации валюты".`

	invalidRequestText = `Вы ввели неверный запрос.

Запустите заново режим конвертации валюты, а затем введите корректный запрос на конвертацию.
Либо воспользуйтесь справочной информацией.`

	// RateLimitedText is sent when a user writes faster than the rate limit allows.
	RateLimitedText = "Слишком много запросов. Подождите немного и повторите."
)

var (
	converterHowTo = "Для конвертации валюты введите запрос следующего формата:\n" +
		"'usd 10.0', где\n" +
		"usd - код валюты,\n" +
		"10.0 - значение валюты, которое необходимо конвертировать.\n\n" +
		"Коды валют, с которыми работает бот:\n" +
		codeList()

	converterHelpText = converterHowTo

	converterEnterText = "Вы запустили режим \"Конвертации валюты\".\n" +
		"Вы можете конвертировать выбранную валюту в рубли по текущему курсу ЦБ РФ.\n\n" +
		converterHowTo + "\n\n" +
		"Для того, чтобы выйти из режима \"Конвертации валюты\" введите команду '" + conversion.TerminateWord + "'."
)

// codeList renders "usd - доллар США;" lines, the last one ending with a dot.
func codeList() string {
	all := currency.All()
	lines := make([]string, len(all))
	for i, c := range all {
		end := ";"
		if i == len(all)-1 {
			end = "."
		}
		lines[i] = fmt.Sprintf("%s - %s%s", c.Code.Lower(), c.Name, end)
	}
	return strings.Join(lines, "\n")
}

func startText(name string) string {
	if strings.TrimSpace(name) == "" {
		return strings.Replace(startFormat, ", %s!", "!", 1)
	}
	return fmt.Sprintf(startFormat, name)
}
