package epub

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/spf13/afero"
)

// encryptionFilePath is the standard path for the encryption descriptor.
const encryptionFilePath = "META-INF/encryption.xml"

// sinfFilePath is the path that indicates Apple FairPlay DRM.
const sinfFilePath = "META-INF/sinf.xml"

// Font obfuscation algorithm URIs – these do NOT constitute DRM.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF font obfuscation
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe font obfuscation
}

// drmSchemes maps namespace fragments found in algorithm URIs or KeyInfo
// content to the scheme name reported in errors.
var drmSchemes = []struct {
	signature string
	name      string
}{
	{"http://ns.adobe.com/adept", "Adobe ADEPT"},
	{"http://readium.org/2014/01/lcp", "Readium LCP"},
}

// checkDRM inspects the extracted META-INF directory. It returns true when
// only font obfuscation is declared, and a KindDRMProtected error when any
// other encryption is present or the descriptor is unreadable.
func checkDRM(fsys afero.Fs, workDir string) (fontObfuscation bool, err error) {
	if _, ok := lookupInsensitive(fsys, workDir, sinfFilePath); ok {
		return false, newError(KindDRMProtected, "file is DRM protected (Apple FairPlay)", nil)
	}

	name, ok := lookupInsensitive(fsys, workDir, encryptionFilePath)
	if !ok {
		return false, nil
	}

	doc, err := openXMLDocument(fsys, name, "encryption", KindDRMProtected)
	if err != nil {
		// Unreadable descriptor: assume the worst.
		return false, newError(KindDRMProtected, "file is DRM protected", err)
	}

	for _, ed := range doc.root.ChildElements() {
		if ed.Tag != "EncryptedData" {
			continue
		}

		algorithm := ""
		if method := ed.SelectElement("EncryptionMethod"); method != nil {
			algorithm, _ = getAttribute(method, "Algorithm")
		}
		if fontObfuscationAlgorithms[algorithm] {
			fontObfuscation = true
			continue
		}

		return false, newError(KindDRMProtected, "file is DRM protected ("+drmSchemeName(algorithm, ed)+")", nil)
	}

	return fontObfuscation, nil
}

// drmSchemeName names the DRM scheme of an EncryptedData element.
func drmSchemeName(algorithm string, ed *etree.Element) string {
	keyInfo := ""
	if ki := ed.SelectElement("KeyInfo"); ki != nil {
		d := etree.NewDocument()
		d.SetRoot(ki.Copy())
		keyInfo, _ = d.WriteToString()
	}
	for _, s := range drmSchemes {
		if strings.Contains(algorithm, s.signature) || strings.Contains(keyInfo, s.signature) {
			return s.name
		}
	}
	return "encrypted content"
}
