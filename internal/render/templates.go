package render

import (
	"bytes"
	"html/template"
	"io/ioutil"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"gitlab.com/avoncourt/revue/internal/models"
)

type Templates struct {
	templates *template.Template
	envConfig *models.EnvConfig
	fs        http.FileSystem
}

func (tmpls *Templates) RenderHTML(w http.ResponseWriter, tmplName string, data interface{}) {
	// Reload templates every time when developing locally.
	if tmpls.envConfig.Debug {
		tmpls.load()
	}
	if tmpls.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	buff := bytes.NewBuffer([]byte{})
	err := tmpls.templates.ExecuteTemplate(buff, tmplName, data)
	if err != nil && tmplName != "404" {
		tmpls.RenderHTML(w, "404", nil)
		log.Println(err)
		return
	}
	w.Header().Add("Content-Type", "text/html")
	w.Write(buff.Bytes())
}

func markdown(args ...interface{}) template.HTML {
	var b bytes.Buffer
	s := args[0].(string)
	goldmark.Convert([]byte(s), &b)
	return template.HTML(b.String())
}

func markdownPreview(args ...interface{}) template.HTML {
	var b bytes.Buffer
	s := args[0].(string)
	i := strings.Index(s, "\n\r")
	maxLen := len(s)
	if 300 < maxLen {
		maxLen = 300
	}
	if i < 0 || i > maxLen {
		i = maxLen
	}
	goldmark.Convert([]byte(s[0:i]), &b)
	html := b.String()

	return template.HTML(string(html))
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"markdown":        markdown,
		"markdownPreview": markdownPreview,
	}
}

// SetFS switches template loading to the embedded assets. Without it,
// templates come from ./web/templates on disk.
func (tmpls *Templates) SetFS(fs http.FileSystem) {
	tmpls.fs = fs
	tmpls.load()
}

func (tmpls *Templates) load() {
	if tmpls.fs == nil || tmpls.envConfig.Debug {
		t, err := template.New("").Funcs(funcMap()).ParseGlob("web/templates/*")
		if err != nil {
			// No templates on disk. A deployed binary gets the
			// embedded ones through SetFS instead.
			log.Println(err)
			return
		}
		tmpls.templates = t
		return
	}

	t := template.New("").Funcs(funcMap())
	dir, err := tmpls.fs.Open("/templates")
	if err != nil {
		log.Fatal(err)
	}
	defer dir.Close()
	entries, err := dir.Readdir(-1)
	if err != nil {
		log.Fatal(err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		f, err := tmpls.fs.Open("/templates/" + entry.Name())
		if err != nil {
			log.Fatal(err)
		}
		b, err := ioutil.ReadAll(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
		t = template.Must(t.Parse(string(b)))
	}
	tmpls.templates = t
}

func GetTemplates(envConfig *models.EnvConfig) Templates {
	tmpls := Templates{envConfig: envConfig}
	tmpls.load()
	return tmpls
}
