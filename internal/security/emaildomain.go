package security

import "strings"

func domainSet(domains []string) map[string]struct{} {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		set[d] = struct{}{}
	}
	return set
}

// disposableDomains lists known throwaway email services. A maintained feed
// would be better in production; this static set covers the common ones.
var disposableDomains = domainSet([]string{
	"10minutemail.com", "10minutemail.net", "10minutemail.org",
	"33mail.com", "anonymbox.com", "antispam.de", "binkmail.com",
	"bobmail.info", "bofthew.com", "bugmenot.com", "bumpymail.com",
	"byom.de", "casualdx.com", "chogmail.com", "cool.fr.nf",
	"correo.blogos.net", "cosmorph.com", "courrieltemporaire.com",
	"crazymailing.com", "curryworld.de", "dayrep.com", "devnullmail.com",
	"dfgh.net", "digitalsanctuary.com", "discard.email", "discardmail.com",
	"dispostable.com", "e4ward.com", "emailias.com", "emailisvalid.com",
	"emailondeck.com", "emailsensei.com", "emailtemporanea.com",
	"emailtemporanea.net", "emailtemporario.com.br", "emailthe.net",
	"emailtmp.com", "emailwarden.com", "emkei.cz", "ephemail.net",
	"etranquil.com", "etranquil.net", "etranquil.org", "evopo.com",
	"explodemail.com", "fakeinbox.com", "fakemail.fr",
	"fakemailgenerator.com", "fastacura.com", "fastchevy.com",
	"fastchrysler.com", "fastkawasaki.com", "fastmazda.com",
	"fastmitsubishi.com", "fastnissan.com", "fastsubaru.com",
	"fastsuzuki.com", "fasttoyota.com", "fastyamaha.com",
	"getairmail.com", "getnada.com", "gmailnator.com", "grr.la",
	"guerrillamail.com", "guerrillamail.net", "guerrillamail.org",
	"guerrillamailblock.com", "inboxbear.com", "jetable.org",
	"mailcatch.com", "maildrop.cc", "mailforspam.com", "mailinator.com",
	"mailinator2.com", "mailnesia.com", "mailpoof.com", "mailsac.com",
	"mailscrap.com", "mintemail.com", "mohmal.com", "mt2014.com",
	"mt2015.com", "mytrashmail.com", "nada.email", "sharklasers.com",
	"spam4.me", "spamgourmet.com", "temp-mail.org", "tempail.com",
	"tempinbox.com", "tempmail.com", "tempr.email", "throwam.com",
	"throwaway.email", "throwawaymail.com", "trashmail.com",
	"trashmail.net", "trbvm.com", "wegwerfmail.de", "wegwerfmail.net",
	"wegwerfmail.org", "yopmail.com", "yopmail.fr", "zep-hyr.com",
})

// freeEmailDomains lists common free providers. Not blocked, but they carry a
// small risk weight for a B2B product.
var freeEmailDomains = domainSet([]string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de", "yahoo.es", "yahoo.it",
	"hotmail.com", "hotmail.co.uk", "hotmail.fr", "hotmail.de", "hotmail.es", "hotmail.it",
	"outlook.com", "outlook.co.uk", "outlook.fr", "outlook.de",
	"live.com", "live.co.uk", "live.fr", "msn.com",
	"icloud.com", "me.com", "mac.com", "aol.com",
	"protonmail.com", "proton.me", "mail.com", "zoho.com",
	"yandex.com", "yandex.ru",
	"gmx.com", "gmx.de", "gmx.net", "web.de", "t-online.de",
})

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return strings.ToLower(email)
	}
	return strings.ToLower(email[at+1:])
}

// IsDisposableEmail reports whether the address uses a known throwaway domain.
func IsDisposableEmail(email string) bool {
	_, ok := disposableDomains[emailDomain(email)]
	return ok
}

// IsFreeEmail reports whether the address uses a common free provider.
func IsFreeEmail(email string) bool {
	_, ok := freeEmailDomains[emailDomain(email)]
	return ok
}

var suspiciousLocalParts = []string{
	"test@", "fake@", "spam@", "noreply@", "nobody@", "example@", "asdf@", "qwerty@",
}

// ValidateEmailDomain checks an address for signup. It rejects disposable
// domains and obviously fake local parts. The returned message is safe to show
// to the user.
func ValidateEmailDomain(email string) (bool, string) {
	if IsDisposableEmail(email) {
		return false, "Disposable email addresses are not allowed. Please use a permanent email."
	}
	lower := strings.ToLower(email)
	for _, prefix := range suspiciousLocalParts {
		if strings.HasPrefix(lower, prefix) {
			return false, "This email address appears to be invalid."
		}
	}
	return true, ""
}
