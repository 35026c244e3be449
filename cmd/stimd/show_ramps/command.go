package showramps

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"strconv"

	"github.com/go-analyze/charts"
	"github.com/mattn/go-sixel"
	"github.com/mdouchement/stimd"
	"github.com/spf13/cobra"
)

const samples = 200

func Command() *cobra.Command {
	var cpath string
	var resolution int

	cmd := &cobra.Command{
		Use:   "show-ramps",
		Short: "Show the configured ramp profiles for each parameter",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := stimd.Load(cpath)
			if err != nil {
				return err
			}

			type chart struct {
				param stimd.Parameter
				unit  string
				pc    stimd.ParameterConfig
			}

			for _, ch := range []chart{
				{param: stimd.Amplitude, unit: "mA", pc: cfg.Amplitude},
				{param: stimd.Frequency, unit: "Hz", pc: cfg.Frequency},
			} {
				var set charts.LineSeriesList
				for _, target := range []stimd.RampTarget{stimd.TargetMax, stimd.TargetRest, stimd.TargetMin} {
					preset, err := ch.pc.Preset(target)
					if err != nil {
						return err
					}

					ls := charts.LineSeries{
						Name: fmt.Sprintf("to %s (%g %s over %s)", target, preset.Value, ch.unit, preset.Duration),
					}
					for i := range samples + 1 {
						frac := float64(i) / float64(samples)
						ls.Values = append(ls.Values, ch.pc.Value+(preset.Value-ch.pc.Value)*frac)
					}
					set = append(set, ls)
				}

				opt := charts.NewLineChartOptionWithSeries(set)
				opt.Theme = charts.GetTheme(charts.ThemeVividDark)
				opt.Padding = charts.NewBox(20, 20, 20, 20)
				opt.Title.Text = fmt.Sprintf("%s ramps from %g %s", ch.param, ch.pc.Value, ch.unit)
				opt.Title.FontStyle.FontSize = 16
				opt.Title.Offset = charts.OffsetLeft
				opt.Legend = charts.LegendOption{
					Show:     stimd.ToPtr(true),
					Offset:   charts.OffsetCenter,
					Vertical: stimd.ToPtr(true),
					Padding:  charts.NewBox(0, 0, 0, 20),
				}
				opt.Symbol = charts.SymbolNone
				opt.LineStrokeWidth = 2
				opt.XAxis.Show = stimd.ToPtr(true)
				opt.XAxis.Title = "ramp progress (%)"
				opt.XAxis.Labels = []string{} // Reset
				for i := range samples + 1 {
					opt.XAxis.Labels = append(opt.XAxis.Labels, strconv.Itoa(i*100/samples))
				}
				opt.XAxis.LabelCount = 10
				opt.YAxis = []charts.YAxisOption{
					{
						Show:                   stimd.ToPtr(true),
						Title:                  ch.unit,
						Min:                    stimd.ToPtr(float64(0)),
						Max:                    stimd.ToPtr(ch.pc.Maximum),
						RangeValuePaddingScale: stimd.ToPtr(float64(0)),
					},
				}
				p := charts.NewPainter(charts.PainterOptions{
					OutputFormat: charts.ChartOutputPNG,
					Width:        resolution,
					Height:       int(float64(resolution) / (16.0 / 9.0)),
				})

				err = p.LineChart(opt)
				if err != nil {
					return fmt.Errorf("%s: %w", ch.param, err)
				}

				mPNG, err := p.Bytes()
				if err != nil {
					return fmt.Errorf("%s: %w", ch.param, err)
				}

				m, _, err := image.Decode(bytes.NewReader(mPNG))
				if err != nil {
					return fmt.Errorf("%s: %w", ch.param, err)
				}

				codec := sixel.NewEncoder(os.Stdout)
				err = codec.Encode(m)
				if err != nil {
					return fmt.Errorf("%s: %w", ch.param, err)
				}
			}

			return nil
		},
	}
	cmd.Flags().StringVarP(&cpath, "config", "c", "/etc/stimd/stimd.yml", "Configfile path")
	cmd.Flags().IntVarP(&resolution, "resolution", "r", 1000, "The width size in pixel of each graph")

	return cmd
}
