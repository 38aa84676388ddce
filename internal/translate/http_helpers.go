package translate

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"
)

func newJSONBody(body []byte) io.Reader {
	return bytes.NewReader(body)
}

func newFormBody(form url.Values) io.Reader {
	return strings.NewReader(form.Encode())
}

// baiduSign implements Baidu Translate's appid+query+salt+secret MD5
// signing scheme.
func baiduSign(appID, query, secret string) (salt, sign string) {
	salt = strconv.FormatInt(time.Now().UnixNano(), 10)
	raw := appID + query + salt + secret
	sum := md5.Sum([]byte(raw))
	return salt, hex.EncodeToString(sum[:])
}
