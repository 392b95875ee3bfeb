package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config agrupa a configuração da aplicação (leitura via Viper de env e opcionalmente arquivo).
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	ORS      ORSConfig
	Rota     RotaConfig
	Arquivos ArquivosConfig
}

// AppConfig configuração geral da aplicação.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// HTTPConfig configuração do servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devolve o endereço de escuta (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ORSConfig configuração do cliente OpenRouteService.
// Com APIKey vazia o serviço de rota opera apenas com o fallback em linha reta.
type ORSConfig struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int // o provedor de direções costuma demorar; padrão 90s
	Pais           string // filtro de geocodificação (boundary.country)
}

// RotaConfig parâmetros do cálculo de rota e do consumo estimado.
type RotaConfig struct {
	ConsumoKmPorLitro float64 // assunção fixa de consumo (km por litro de diesel)
	FecharCiclo       bool    // soma a perna de retorno à origem por padrão
	MaxPontosPorReq   int     // limite de waypoints por requisição do provedor
}

// ArquivosConfig caminhos dos artefatos em disco (cache, registros, mapas, log).
type ArquivosConfig struct {
	Dir string // diretório base; os demais caminhos derivam dele
}

// EntradaDir diretório padrão dos arquivos de entrada do lote.
func (c ArquivosConfig) EntradaDir() string { return filepath.Join(c.Dir, "entrada") }

// GeocachePath caminho do cache de geocodificação persistido.
func (c ArquivosConfig) GeocachePath() string { return filepath.Join(c.Dir, "geocache.json") }

// VeiculosPath caminho do cadastro local de veículos.
func (c ArquivosConfig) VeiculosPath() string { return filepath.Join(c.Dir, "veiculos.json") }

// RegistrosPath caminho do último lote de registros consolidados salvo.
func (c ArquivosConfig) RegistrosPath() string { return filepath.Join(c.Dir, "registros.local.json") }

// RunLogPath caminho do log de cálculo do último processamento.
func (c ArquivosConfig) RunLogPath() string { return filepath.Join(c.Dir, "log_calculo.txt") }

// MapasDir diretório onde os mapas HTML de rota são gravados.
func (c ArquivosConfig) MapasDir() string { return filepath.Join(c.Dir, "mapas") }

// Load lê a configuração de variáveis de ambiente (e opcionalmente de arquivo).
// As env vars têm prioridade. Nomes esperados: APP_ENV, HTTP_PORT, ORS_API_KEY, etc.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: arquivo de configuração (.env ou config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos erro se não existir

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignoramos erro se não existir

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "frota-fiscal"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		ORS: ORSConfig{
			APIKey:         getString(v, "ORS_API_KEY", ""),
			BaseURL:        getString(v, "ORS_BASE_URL", "https://api.openrouteservice.org"),
			TimeoutSeconds: getInt(v, "ORS_TIMEOUT_SECONDS", 90),
			Pais:           getString(v, "ORS_PAIS", "BR"),
		},
		Rota: RotaConfig{
			ConsumoKmPorLitro: getFloat(v, "ROTA_CONSUMO_KM_POR_LITRO", 3.0),
			FecharCiclo:       getBool(v, "ROTA_FECHAR_CICLO", true),
			MaxPontosPorReq:   getInt(v, "ROTA_MAX_PONTOS_POR_REQ", 70),
		},
		Arquivos: ArquivosConfig{
			Dir: getString(v, "ARQUIVOS_DIR", "./dados"),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getFloat(v *viper.Viper, key string, def float64) float64 {
	if v.IsSet(key) {
		if f := v.GetFloat64(key); f != 0 {
			return f
		}
		if n, err := strconv.ParseFloat(v.GetString(key), 64); err == nil {
			return n
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
